package models

import (
	"sort"
	"strings"
	"time"
)

// Identity 登录用户信息（由上游 auth 服务签发，会话期内不变）
// 字段与上游 /auth/login 返回的 user 对象对齐
type Identity struct {
	ID                int    `json:"id"`
	Username          string `json:"username"`
	Access            string `json:"access,omitempty"` // raw access field, e.g. "all" or "dashboard, orders"
	Role              string `json:"role,omitempty"`
	SupervisorName    string `json:"supervisor_name,omitempty"`
	ItemName          string `json:"item_name,omitempty"`
	QualityController string `json:"quality_controller,omitempty"`
	LoadingIncharge   string `json:"loading_incharge,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// RawDispatchRow 上游返回的原始行（字段可能缺失，state 字段存在多种命名）
type RawDispatchRow struct {
	InDate      string `json:"indate"`
	OutDate     string `json:"outdate"`
	GateOutTime string `json:"gateOutTime"`
	OrderVrno   string `json:"orderVrno"`
	GateVrno    string `json:"gateVrno"`
	Wslipno     string `json:"wslipno"`
	SalesPerson string `json:"salesPerson"`
	PartyName   string `json:"partyName"`
	ItemName    string `json:"itemName"`
	InvoiceNo   string `json:"invoiceNo"`
	StateName   string `json:"stateName"`
	State       string `json:"state"`
	StateUpper  string `json:"STATE"`
}

// DispatchRow is the normalized internal row. All string fields are trimmed
// and the state variants are collapsed into one field. Empty string means
// "absent" (the external system routinely drops fields).
type DispatchRow struct {
	InDate      string `json:"indate,omitempty"`
	OutDate     string `json:"outdate,omitempty"`
	GateOutTime string `json:"gateOutTime,omitempty"`
	OrderVrno   string `json:"orderVrno,omitempty"`
	GateVrno    string `json:"gateVrno,omitempty"`
	Wslipno     string `json:"wslipno,omitempty"`
	SalesPerson string `json:"salesPerson,omitempty"`
	PartyName   string `json:"partyName,omitempty"`
	ItemName    string `json:"itemName,omitempty"`
	InvoiceNo   string `json:"invoiceNo,omitempty"`
	StateName   string `json:"stateName,omitempty"`
}

// NormalizeRow collapses the "field may come under several names" tolerance
// into one boundary function so the derivation engines see a strict row.
func NormalizeRow(raw RawDispatchRow) DispatchRow {
	state := strings.TrimSpace(raw.StateName)
	if state == "" {
		state = strings.TrimSpace(raw.State)
	}
	if state == "" {
		state = strings.TrimSpace(raw.StateUpper)
	}
	return DispatchRow{
		InDate:      strings.TrimSpace(raw.InDate),
		OutDate:     strings.TrimSpace(raw.OutDate),
		GateOutTime: strings.TrimSpace(raw.GateOutTime),
		OrderVrno:   strings.TrimSpace(raw.OrderVrno),
		GateVrno:    strings.TrimSpace(raw.GateVrno),
		Wslipno:     strings.TrimSpace(raw.Wslipno),
		SalesPerson: strings.TrimSpace(raw.SalesPerson),
		PartyName:   strings.TrimSpace(raw.PartyName),
		ItemName:    strings.TrimSpace(raw.ItemName),
		InvoiceNo:   strings.TrimSpace(raw.InvoiceNo),
		StateName:   state,
	}
}

// NormalizeRows 批量归一化
func NormalizeRows(raws []RawDispatchRow) []DispatchRow {
	rows := make([]DispatchRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, NormalizeRow(raw))
	}
	return rows
}

// dateLayouts covers the formats the upstream emits (ISO timestamps from the
// API path, plain dates from the SQL path, dd/mm/yyyy from legacy exports).
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseRowTime parses a row timestamp, returning false for empty or
// unparseable values.
func ParseRowTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveDate returns the row's date source by priority: out-date, then
// in-date, then gate-out time. The first non-empty value wins even when it
// later fails to parse.
func (r DispatchRow) ResolveDate() (time.Time, bool) {
	source := r.OutDate
	if source == "" {
		source = r.InDate
	}
	if source == "" {
		source = r.GateOutTime
	}
	return ParseRowTime(source)
}

// DashboardSummary 后端聚合指标（字段可能缺省，缺省时由行数据补算）
type DashboardSummary struct {
	TotalGateIn    *int `json:"totalGateIn,omitempty"`
	TotalGateOut   *int `json:"totalGateOut,omitempty"`
	PendingGateOut *int `json:"pendingGateOut,omitempty"`
	TotalDispatch  *int `json:"totalDispatch,omitempty"`
}

// FilterVocabulary 过滤器候选值
type FilterVocabulary struct {
	Parties      []string `json:"parties"`
	Items        []string `json:"items"`
	SalesPersons []string `json:"salesPersons"`
	States       []string `json:"states"`
}

// DeriveVocabulary builds a sorted distinct vocabulary from the rows. Used as
// fallback when the server-provided vocabulary is missing or partial.
func DeriveVocabulary(rows []DispatchRow) FilterVocabulary {
	return FilterVocabulary{
		Parties:      distinctSorted(rows, func(r DispatchRow) string { return r.PartyName }),
		Items:        distinctSorted(rows, func(r DispatchRow) string { return r.ItemName }),
		SalesPersons: distinctSorted(rows, func(r DispatchRow) string { return r.SalesPerson }),
		States:       distinctSorted(rows, func(r DispatchRow) string { return r.StateName }),
	}
}

func distinctSorted(rows []DispatchRow, field func(DispatchRow) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range rows {
		v := strings.TrimSpace(field(r))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DashboardSnapshot 一次完整的看板数据快照（整体替换，从不就地修改）
type DashboardSnapshot struct {
	Summary   DashboardSummary `json:"summary"`
	Filters   FilterVocabulary `json:"filters"`
	Rows      []DispatchRow    `json:"rows"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// Selector sentinels. "No predicate selected" is a sentinel value, never an
// empty string, so selector state stays trivial on the client.
const (
	AllParties      = "All Parties"
	AllItems        = "All Items"
	AllSalesPersons = "All Salespersons"
	AllStates       = "All States"
)

// FilterSelection 五个相互独立的可选过滤条件
type FilterSelection struct {
	Party       string     `json:"party"`
	Item        string     `json:"item"`
	SalesPerson string     `json:"salesPerson"`
	State       string     `json:"state"`
	FromDate    *time.Time `json:"fromDate,omitempty"`
	ToDate      *time.Time `json:"toDate,omitempty"`
}

// DefaultSelection returns the all-sentinel, no-date-bound selection.
func DefaultSelection() FilterSelection {
	return FilterSelection{
		Party:       AllParties,
		Item:        AllItems,
		SalesPerson: AllSalesPersons,
		State:       AllStates,
	}
}
