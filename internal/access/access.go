package access

import "strings"

// AllSentinel 原始 access 字段的特殊值，表示授予全部权限
// 解析时对照当前目录实时展开（目录扩充后 "all" 用户自动获得新屏幕）
const AllSentinel = "all"

// Catalog is the authoritative, ordered list of screen identifiers. It is the
// expansion target for the "all" sentinel and the router's default-selection
// scan order. Resolution always takes the catalog as an argument so stored
// sessions never freeze a stale copy of it.
type Catalog struct {
	ids []string
}

// DefaultCatalog 当前版本的权限目录（按侧边栏顺序）
func DefaultCatalog() *Catalog {
	return NewCatalog([]string{
		"dashboard",
		"orders",
		"gate-entry",
		"first-weight",
		"load-vehicle",
		"second-weight",
		"generate-invoice",
		"gate-out",
		"payment",
		"complaint-details",
		"party-feedback",
		"permissions",
		"register",
	})
}

func NewCatalog(ids []string) *Catalog {
	out := make([]string, len(ids))
	copy(out, ids)
	return &Catalog{ids: out}
}

// IDs returns the catalog in canonical order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

func (c *Catalog) Len() int { return len(c.ids) }

func (c *Catalog) Contains(id string) bool {
	for _, v := range c.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Resolve parses a raw access field into a capability set. Pure and
// deterministic: the sentinel (any casing/whitespace) expands to the full
// catalog in catalog order; anything else is comma-split, trimmed,
// empty-filtered and lowercased.
func Resolve(raw string, catalog *Catalog) []string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return []string{}
	}
	if normalized == AllSentinel {
		return catalog.IDs()
	}

	parts := strings.Split(normalized, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Has reports membership of a capability id in a set.
func Has(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity bypasses per-view access checks:
// role "admin" (case-insensitive), a set equal to the full catalog, or a set
// whose size matches the catalog size. The size check tolerates catalog drift
// without invalidating existing sessions.
func IsAdmin(role string, set []string, catalog *Catalog) bool {
	if strings.EqualFold(strings.TrimSpace(role), "admin") {
		return true
	}
	if len(set) != catalog.Len() {
		return false
	}
	return true
}

// Permitted reports whether a view is reachable for the given role and set.
func Permitted(viewID, role string, set []string, catalog *Catalog) bool {
	return IsAdmin(role, set, catalog) || Has(set, viewID)
}
