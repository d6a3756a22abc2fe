// Package sites holds per-site settings for the reporting portal: base URL
// overrides and the timezone shift times are interpreted in.
package sites

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/constants"
	"gopkg.in/ini.v1"
)

// Profile is the configuration for one warehouse site.
type Profile struct {
	Site     string
	BaseURL  string
	Timezone string
}

// Location resolves the profile's timezone, defaulting to UTC.
func (p Profile) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q for site %s: %v", p.Timezone, p.Site, err)
	}
	return loc, nil
}

// Profiles is the set of known site profiles.
type Profiles struct {
	profiles map[string]Profile
}

// Load reads site profiles from an INI file, one section per site code.
// A missing file is not an error: every site then gets the defaults.
func Load(path string) (Profiles, error) {
	p := Profiles{profiles: make(map[string]Profile)}
	if path == "" {
		return p, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("No site profiles file", "path", path)
		return p, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("could not load site profiles from %s: %v", path, err)
	}

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		p.profiles[section.Name()] = Profile{
			Site:     section.Name(),
			BaseURL:  section.Key("base_url").String(),
			Timezone: section.Key("timezone").String(),
		}
	}
	return p, nil
}

// Get returns the profile for a site. Unknown sites get the portal defaults.
func (p Profiles) Get(site string) Profile {
	if profile, ok := p.profiles[site]; ok {
		if profile.BaseURL == "" {
			profile.BaseURL = constants.DefaultPortalBaseURL
		}
		return profile
	}
	return Profile{Site: site, BaseURL: constants.DefaultPortalBaseURL}
}
