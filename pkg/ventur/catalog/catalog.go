// Package catalog holds the fixed table of Ventur API endpoints: where each one is
// routed, which input fields it reads, and how its JSON body is assembled.
package catalog

import (
	"strings"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
)

// Endpoint identifies one of the Ventur API operations.
type Endpoint string

const (
	CompanySnapshot         Endpoint = "companySnapshot"
	PeopleSnapshot          Endpoint = "peopleSnapshot"
	WebSearch               Endpoint = "webSearch"
	DemoResearch            Endpoint = "demoResearch"
	EnterpriseCompanyReport Endpoint = "enterpriseCompanyReport"
	DiscoverCompanies       Endpoint = "discoverCompanies"
	CustomerFeedback        Endpoint = "customerFeedback"
	RecruitmentData         Endpoint = "recruitmentData"
	TechnologyLookup        Endpoint = "technologyLookup"
	OfficialRecords         Endpoint = "officialRecords"
)

// DefaultSource is sent as "source" when an item does not supply one.
const DefaultSource = "n8n-integration"

// Role names what an input value means, independent of the field it is read from.
type Role string

const (
	RoleQuery          Role = "query"
	RoleCompanyName    Role = "companyName"
	RoleCompanyWebsite Role = "companyWebsite"
	RoleCountry        Role = "country"
	RoleSearchInput    Role = "searchInput"
)

// binding maps one body key to the role that feeds it.
type binding struct {
	key  string
	role Role
}

type entry struct {
	endpoint    Endpoint
	displayName string
	description string
	path        string
	bindings    []binding
	metadata    bool
}

// table is ordered as the endpoints are presented to users.
var table = []entry{
	{
		endpoint:    CompanySnapshot,
		displayName: "Company Snapshot",
		description: "Get comprehensive company intelligence and profiles",
		path:        "/api/v1/company-snapshot",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
	{
		endpoint:    PeopleSnapshot,
		displayName: "People Snapshot",
		description: "Get detailed person profiles and professional intelligence",
		path:        "/api/v1/people-snapshot",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
	{
		endpoint:    WebSearch,
		displayName: "Web Search",
		description: "AI-powered web search with intelligent analysis",
		path:        "/api/v1/web-search",
		bindings:    []binding{{key: "query", role: RoleQuery}},
	},
	{
		endpoint:    DemoResearch,
		displayName: "Demo Research",
		description: "Business intelligence research for demo preparation",
		path:        "/api/v1/demo-research",
		bindings:    []binding{{key: "query", role: RoleQuery}},
	},
	{
		endpoint:    EnterpriseCompanyReport,
		displayName: "Enterprise Company Report",
		description: "Detailed enterprise-level company analysis",
		path:        "/api/v1/enterprise-company-report",
		bindings: []binding{
			{key: "company_name", role: RoleCompanyName},
			{key: "company_website", role: RoleCompanyWebsite},
			{key: "country", role: RoleCountry},
		},
	},
	{
		endpoint:    DiscoverCompanies,
		displayName: "Discover Companies",
		description: "Find companies matching specific criteria",
		path:        "/api/v1/discover-companies",
		bindings:    []binding{{key: "search_input", role: RoleSearchInput}},
	},
	{
		endpoint:    CustomerFeedback,
		displayName: "Customer Feedback",
		description: "Analyze customer reviews and sentiment",
		path:        "/api/v1/customer-feedback",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
	{
		endpoint:    RecruitmentData,
		displayName: "Recruitment Data",
		description: "Extract job market intelligence and company benefits",
		path:        "/api/v1/recruitment-data",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
	{
		endpoint:    TechnologyLookup,
		displayName: "Technology Lookup",
		description: "Analyze company technology stacks and infrastructure",
		path:        "/api/v1/technology-lookup",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
	{
		endpoint:    OfficialRecords,
		displayName: "Official Records",
		description: "Access official company registration data",
		path:        "/api/v1/official-records",
		bindings:    []binding{{key: "query", role: RoleQuery}},
		metadata:    true,
	},
}

// Field is one required input: the host field it is read from and the body key it fills.
type Field struct {
	Name string
	Key  string
}

// Spec is the routing and body rule for one endpoint under a naming scheme.
type Spec struct {
	Endpoint    Endpoint
	DisplayName string
	Description string
	Path        string

	// Required lists the input fields in body order.
	Required []Field

	// TimestampField and SourceField are set for endpoints that carry request
	// metadata. Both are optional inputs with defaults.
	TimestampField string
	SourceField    string
}

// HasMetadata reports whether the body carries timestamp and source.
func (s Spec) HasMetadata() bool {
	return s.TimestampField != "" || s.SourceField != ""
}

// Inputs returns every field name BuildBody reads, required fields first.
func (s Spec) Inputs() []string {
	out := make([]string, 0, len(s.Required)+2)
	for _, f := range s.Required {
		out = append(out, f.Name)
	}
	if s.TimestampField != "" {
		out = append(out, s.TimestampField)
	}
	if s.SourceField != "" {
		out = append(out, s.SourceField)
	}
	return out
}

// Catalog is the endpoint table bound to one naming scheme. It is immutable.
type Catalog struct {
	scheme Scheme
	specs  map[Endpoint]Spec
	order  []Endpoint
}

// New builds a catalog that reads inputs using the given scheme.
func New(scheme Scheme) *Catalog {
	c := &Catalog{
		scheme: scheme,
		specs:  make(map[Endpoint]Spec, len(table)),
		order:  make([]Endpoint, 0, len(table)),
	}
	for _, e := range table {
		spec := Spec{
			Endpoint:    e.endpoint,
			DisplayName: e.displayName,
			Description: e.description,
			Path:        e.path,
			Required:    make([]Field, 0, len(e.bindings)),
		}
		for _, b := range e.bindings {
			spec.Required = append(spec.Required, Field{
				Name: scheme.fieldFor(e.endpoint, b.role),
				Key:  b.key,
			})
		}
		if e.metadata {
			spec.TimestampField = scheme.TimestampField
			spec.SourceField = scheme.SourceField
		}
		c.specs[e.endpoint] = spec
		c.order = append(c.order, e.endpoint)
	}
	return c
}

// Default is the catalog under the per-endpoint naming scheme.
var Default = New(SchemePerEndpoint)

// Scheme returns the naming scheme the catalog was built with.
func (c *Catalog) Scheme() Scheme {
	return c.scheme
}

// Resolve returns the spec for an endpoint identifier.
func (c *Catalog) Resolve(id string) (Spec, error) {
	spec, ok := c.specs[Endpoint(strings.TrimSpace(id))]
	if !ok {
		return Spec{}, &core.UnknownEndpointError{Endpoint: id}
	}
	return spec, nil
}

// Endpoints returns all specs in presentation order.
func (c *Catalog) Endpoints() []Spec {
	out := make([]Spec, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.specs[id])
	}
	return out
}

// Resolve looks up id in the Default catalog.
func Resolve(id string) (Spec, error) {
	return Default.Resolve(id)
}
