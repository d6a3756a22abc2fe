package schema

import "github.com/shiftmetrics/shift-insights/internal/metrictable"

var defaultVocabulary = Vocabulary{
	Time:   []string{"date", "datetime", "day", "hour", "minute", "time"},
	Hours:  []string{"paid hours", "hours"},
	Volume: []string{"units", "cases", "pallets", "volume", "jobs"},
}

// totalRow restricts an aggregate to the portal's per-path rollup line.
func totalRow(unitType string) []metrictable.Condition {
	conds := []metrictable.Condition{{Field: "Size", Equals: []string{"Total"}}}
	if unitType != "" {
		conds = append(conds, metrictable.Condition{Field: "Unit Type", Equals: []string{unitType}})
	}
	return conds
}

// defaultProcesses is the built-in catalog for the inbound dock: the portal
// function rollup IDs and the field names its CSV reports use.
var defaultProcesses = []Process{
	{
		Name:     "Case Receive",
		PortalID: "1003025",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Cases": {Field: "Units", Where: totalRow("Case")},
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Cubiscan",
		PortalID: "1002971",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Each Receive",
		PortalID: "01003027",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "LP Receive",
		PortalID: "1003031",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Pallet Receive",
		PortalID: "1003032",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Pallets": {Field: "Units", Where: totalRow("Pallet")},
			"Units":   {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Prep Recorder",
		PortalID: "01003002",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "RC Presort",
		PortalID: "1003008",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "RC Sort",
		PortalID: "1003009",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Receive Dock",
		PortalID: "1003010",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Receive Support",
		PortalID: "1003033",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "RSR Support",
		PortalID: "1003012",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Transfer Out",
		PortalID: "1003021",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		Name:     "Transfer Out Dock",
		PortalID: "1003022",
		Hours:    Metric{Field: "Paid Hours", Where: totalRow("Each")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("Each")},
		},
	},
	{
		// Process path rollup: no function ID on the portal.
		Name:  "PRU",
		Hours: Metric{Field: "Paid Hours", Where: totalRow("")},
		Volumes: map[string]Metric{
			"Units": {Field: "Units", Where: totalRow("")},
		},
	},
}
