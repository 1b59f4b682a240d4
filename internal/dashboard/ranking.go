package dashboard

import (
	"sort"

	"o2d-dashboard/internal/models"
)

// topN 排名截断长度，超出部分合并进 "Others"
const topN = 10

// OthersName 合成的剩余桶名称
const OthersName = "Others"

// chartPalette is cycled by rank index; the Others bucket always gets the
// fixed neutral color instead.
var chartPalette = []string{
	"#0088FE", "#00C49F", "#FFBB28", "#FF8042",
	"#8884D8", "#82CA9D", "#FFC658", "#FF7C7C",
}

const othersFill = "#999999"

// RankedEntry 排名表中的一行
type RankedEntry struct {
	Rank       int      `json:"rank"` // 0 for the Others bucket
	Name       string   `json:"name"`
	Dispatches int      `json:"dispatches"`
	Items      []string `json:"items,omitempty"`
	Others     bool     `json:"others,omitempty"`
}

// ChartPoint 饼图的一个扇区
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Fill  string `json:"fill"`
}

type partyGroup struct {
	name  string
	count int
	items []string
	seen  map[string]bool
}

// groupByParty groups rows by trimmed counterparty name in first-encountered
// order. Rows with an empty name are excluded from grouping entirely.
func groupByParty(rows []models.DispatchRow) []*partyGroup {
	index := make(map[string]*partyGroup)
	groups := []*partyGroup{}
	for _, row := range rows {
		name := row.PartyName
		if name == "" {
			continue
		}
		g, ok := index[name]
		if !ok {
			g = &partyGroup{name: name, seen: make(map[string]bool)}
			index[name] = g
			groups = append(groups, g)
		}
		g.count++
		if row.ItemName != "" && !g.seen[row.ItemName] {
			g.seen[row.ItemName] = true
			g.items = append(g.items, row.ItemName)
		}
	}
	return groups
}

// sortedGroups returns the groups sorted descending by count. The sort is
// stable: ties keep first-encountered order, no secondary key.
func sortedGroups(rows []models.DispatchRow) []*partyGroup {
	groups := groupByParty(rows)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})
	return groups
}

// Rank produces the Top-10 list plus one synthetic Others entry summing the
// remainder, emitted only when the remainder is non-empty.
func Rank(rows []models.DispatchRow) []RankedEntry {
	groups := sortedGroups(rows)

	out := []RankedEntry{}
	for i, g := range groups {
		if i >= topN {
			break
		}
		out = append(out, RankedEntry{
			Rank:       i + 1,
			Name:       g.name,
			Dispatches: g.count,
			Items:      g.items,
		})
	}

	if len(groups) > topN {
		othersTotal := 0
		for _, g := range groups[topN:] {
			othersTotal += g.count
		}
		out = append(out, RankedEntry{
			Name:       OthersName,
			Dispatches: othersTotal,
			Others:     true,
		})
	}

	return out
}

// ChartSeries reuses the ranking grouping for the pie-chart distribution.
func ChartSeries(rows []models.DispatchRow) []ChartPoint {
	out := []ChartPoint{}
	for _, e := range Rank(rows) {
		fill := othersFill
		if !e.Others {
			fill = chartPalette[(e.Rank-1)%len(chartPalette)]
		}
		out = append(out, ChartPoint{
			Name:  e.Name,
			Value: e.Dispatches,
			Fill:  fill,
		})
	}
	return out
}
