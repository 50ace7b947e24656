package models

// InstanceType is the metadata of one instance type as published in the
// vendor's instance-types document.
//
// Optional fields are absent rather than zero: Disk is nil, IOPerformance and
// EBSOptimized are empty and Notes is nil when the document has no value.
type InstanceType struct {
	APIName       string   `json:"api_name"`
	Name          string   `json:"name"`
	Cores         int      `json:"cores"`
	ECUs          float64  `json:"ecus"`
	RAM           string   `json:"ram"`
	Disk          *int     `json:"disk,omitempty"`
	SSD           bool     `json:"ssd"`
	Architectures []int    `json:"architectures"`
	IOPerformance string   `json:"io_performance,omitempty"`
	EBSOptimized  string   `json:"ebs_optimized,omitempty"`
	EBSOnly       bool     `json:"ebs_only"`
	Notes         []string `json:"notes,omitempty"`
}

// SupportsArchitecture reports whether the type runs on the given word size.
func (t InstanceType) SupportsArchitecture(bits int) bool {
	for _, a := range t.Architectures {
		if a == bits {
			return true
		}
	}
	return false
}

// Catalog indexes instance types by API name, keeping document order.
type Catalog struct {
	order []string
	types map[string]InstanceType
}

// NewCatalog builds a Catalog. When an API name repeats, the first record wins
// the lookup but both stay in the input slice the caller owns.
func NewCatalog(types []InstanceType) *Catalog {
	c := &Catalog{types: make(map[string]InstanceType, len(types))}
	for _, t := range types {
		if _, ok := c.types[t.APIName]; ok {
			continue
		}
		c.order = append(c.order, t.APIName)
		c.types[t.APIName] = t
	}
	return c
}

func (c *Catalog) Lookup(apiName string) (InstanceType, bool) {
	t, ok := c.types[apiName]
	return t, ok
}

// APINames returns the indexed names in document order.
func (c *Catalog) APINames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}
