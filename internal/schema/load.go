package schema

import "github.com/shiftmetrics/shift-insights/internal/metrictable"

// catalogFile is the TOML representation of catalog overrides.
type catalogFile struct {
	Critical   []string        `toml:"critical"`
	Vocabulary *vocabularyFile `toml:"vocabulary"`
	Process    []processFile   `toml:"process"`
}

type vocabularyFile struct {
	Time   []string `toml:"time"`
	Hours  []string `toml:"hours"`
	Volume []string `toml:"volume"`
}

type processFile struct {
	Name     string       `toml:"name"`
	PortalID string       `toml:"portal_id"`
	Remove   bool         `toml:"remove"`
	Hours    *metricFile  `toml:"hours"`
	Volume   []volumeFile `toml:"volume"`
}

type metricFile struct {
	Field string      `toml:"field"`
	Where []whereFile `toml:"where"`
}

type volumeFile struct {
	Metric string      `toml:"metric"`
	Field  string      `toml:"field"`
	Where  []whereFile `toml:"where"`
}

type whereFile struct {
	Field  string   `toml:"field"`
	Equals []string `toml:"equals"`
}

// apply merges file overrides into the catalog. A named process replaces the
// default of the same name wholesale; remove = true drops it.
func (c *Catalog) apply(file catalogFile) {
	if file.Vocabulary != nil {
		if len(file.Vocabulary.Time) > 0 {
			c.vocab.Time = file.Vocabulary.Time
		}
		if len(file.Vocabulary.Hours) > 0 {
			c.vocab.Hours = file.Vocabulary.Hours
		}
		if len(file.Vocabulary.Volume) > 0 {
			c.vocab.Volume = file.Vocabulary.Volume
		}
	}

	for _, pf := range file.Process {
		if pf.Name == "" {
			continue
		}
		if pf.Remove {
			delete(c.processes, pf.Name)
			continue
		}

		p := Process{
			Name:     pf.Name,
			PortalID: pf.PortalID,
			Volumes:  make(map[string]Metric),
		}
		if pf.Hours != nil {
			p.Hours = Metric{Field: pf.Hours.Field, Where: conditions(pf.Hours.Where)}
		}
		for _, vf := range pf.Volume {
			if vf.Metric == "" || vf.Field == "" {
				continue
			}
			p.Volumes[vf.Metric] = Metric{Field: vf.Field, Where: conditions(vf.Where)}
		}
		c.processes[p.Name] = p
	}

	c.MarkCritical(file.Critical...)
}

func conditions(where []whereFile) []metrictable.Condition {
	conds := make([]metrictable.Condition, 0, len(where))
	for _, w := range where {
		conds = append(conds, metrictable.Condition{Field: w.Field, Equals: w.Equals})
	}
	return conds
}
