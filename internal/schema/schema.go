// Package schema supplies the per-process metric definitions the engine is
// driven by: which portal report to pull, which fields hold volumes and
// hours, which rates to derive, and which processes are critical enough that
// an empty result must abort the run.
//
// Field names are never hard-coded in the engine; everything flows from the
// catalog, which ships with built-in defaults and can be overridden from a
// TOML file.
package schema

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shiftmetrics/shift-insights/internal/metrictable"
	"github.com/ubuntu/decorate"
)

// ErrUnknownProcess is returned when a process name is not in the catalog.
var ErrUnknownProcess = errors.New("unknown process")

// Metric names a table aggregate: sum the Field over rows matching Where.
type Metric struct {
	Field string
	Where []metrictable.Condition
}

// Process describes one warehouse work process.
type Process struct {
	Name     string
	PortalID string // empty means the process-path rollup report
	Hours    Metric
	Volumes  map[string]Metric // metric name -> aggregate; each also defines a rate
}

// Vocabulary classifies columns by name for tables whose schema the portal
// controls.
type Vocabulary struct {
	Time   []string
	Hours  []string
	Volume []string
}

// Catalog is the full process catalog plus the field-role vocabulary and the
// critical process set.
type Catalog struct {
	processes map[string]Process
	critical  map[string]bool
	vocab     Vocabulary
}

// New returns a Catalog with the built-in defaults.
func New() *Catalog {
	c := &Catalog{
		processes: make(map[string]Process),
		critical:  make(map[string]bool),
		vocab:     defaultVocabulary,
	}
	for _, p := range defaultProcesses {
		c.processes[p.Name] = p
	}
	return c
}

// Load returns the default catalog with overrides applied from the TOML file
// at path. A missing file is not an error: the defaults stand.
func Load(path string) (c *Catalog, err error) {
	defer decorate.OnError(&err, "could not load process catalog from %s", path)

	c = New()
	if path == "" {
		return c, nil
	}

	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}

	c.apply(file)
	return c, nil
}

// Processes returns every process in the catalog, sorted by name.
func (c *Catalog) Processes() []Process {
	out := make([]Process, 0, len(c.processes))
	for _, p := range c.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Process looks up one process by name.
func (c *Catalog) Process(name string) (Process, error) {
	p, ok := c.processes[name]
	if !ok {
		return Process{}, fmt.Errorf("%w: %s", ErrUnknownProcess, name)
	}
	return p, nil
}

// IsCritical reports whether a failed result for the process must abort the run.
func (c *Catalog) IsCritical(name string) bool {
	return c.critical[name]
}

// MarkCritical adds processes to the critical set.
func (c *Catalog) MarkCritical(names ...string) {
	for _, n := range names {
		c.critical[n] = true
	}
}

// Roles returns the column classification for a process's tables: the shared
// vocabulary extended with the process's declared volume and hours fields.
func (c *Catalog) Roles(p Process) metrictable.FieldRoles {
	r := roleView{vocab: c.vocab}
	r.hoursFields = append(r.hoursFields, p.Hours.Field)
	for _, m := range p.Volumes {
		r.volumeFields = append(r.volumeFields, m.Field)
	}
	return r
}

type roleView struct {
	vocab        Vocabulary
	hoursFields  []string
	volumeFields []string
}

func (r roleView) IsTimeAnchor(field string) bool {
	// Hours fields first: "Paid Hours" must not be mistaken for "Hour of Day".
	if r.IsHours(field) {
		return false
	}
	return matchesAny(field, r.vocab.Time)
}

func (r roleView) IsHours(field string) bool {
	return matchesAny(field, r.vocab.Hours) || matchesAny(field, r.hoursFields)
}

func (r roleView) IsVolume(field string) bool {
	if r.IsHours(field) {
		return false
	}
	return matchesAny(field, r.vocab.Volume) || matchesAny(field, r.volumeFields)
}

func matchesAny(field string, labels []string) bool {
	f := strings.ToLower(strings.TrimSpace(field))
	for _, l := range labels {
		l = strings.ToLower(l)
		if f == l || strings.Contains(f, l) {
			return true
		}
	}
	return false
}
