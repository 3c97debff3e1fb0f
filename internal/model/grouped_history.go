package model

// Index identifies a displayed entity (affiliate or solver).
// Entries sharing Name are one logical entity spread over several addresses.
type Index struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	MainColor string `json:"main_color,omitempty"`
}

// GroupedHistory holds all granularities for one entity.
type GroupedHistory[D Bucket] struct {
	Index   Index             `json:"index"`
	Daily   []D               `json:"daily"`
	Weekly  []*WeeklyHistory  `json:"weekly"`
	Monthly []*MonthlyHistory `json:"monthly"`
}

// Empty reports whether the entity has no data at all.
func (g *GroupedHistory[D]) Empty() bool {
	return len(g.Daily) == 0 && len(g.Weekly) == 0 && len(g.Monthly) == 0
}
