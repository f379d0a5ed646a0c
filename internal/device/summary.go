package device

// Summary aggregates the registry for dashboards.
type Summary struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	ByGroup    map[string]int `json:"by_group"`
	ByCategory map[string]int `json:"by_category"`
}

// Summarize counts devices overall, active devices, and devices per group
// name and per classification category. Only keys present in the data appear.
func Summarize(devices []Device) Summary {
	s := Summary{
		Total:      len(devices),
		ByGroup:    make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, d := range devices {
		if d.IsActive {
			s.Active++
		}
		s.ByGroup[d.Group.Name]++
		s.ByCategory[d.AIClassification.DeviceCategory]++
	}
	return s
}
