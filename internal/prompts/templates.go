package prompts

import "strings"

// ReportTemplate describes one report type.
type ReportTemplate struct {
	Key            string   `yaml:"key" json:"key"`
	Title          string   `yaml:"title" json:"title"`
	Focus          string   `yaml:"focus" json:"focus"`
	Sections       []string `yaml:"sections" json:"sections"`
	Visualizations []string `yaml:"visualizations" json:"visualizations"`
}

// DefaultTemplate is used when a request names no report type.
const DefaultTemplate = "intervention"

var builtinTemplates = []ReportTemplate{
	{
		Key:            "intervention",
		Title:          "Technical Intervention Report",
		Focus:          "detailed technical intervention",
		Sections:       []string{"Executive Summary", "Intervention Context", "Technical Analysis", "Actions Taken", "Results and Metrics", "Recommendations", "Follow-up Plan"},
		Visualizations: []string{"Intervention timeline", "Before/after performance charts", "Technical diagrams", "Resolution metrics"},
	},
	{
		Key:            "academic",
		Title:          "Academic Analysis Report",
		Focus:          "in-depth academic study with rigorous methodology",
		Sections:       []string{"Abstract", "Introduction", "Methodology", "Data Analysis", "Results", "Discussion", "Conclusion", "References"},
		Visualizations: []string{"Statistical charts", "Correlation tables", "Methodology diagrams", "Comparative analyses"},
	},
	{
		Key:            "executive",
		Title:          "Strategic Executive Report",
		Focus:          "decision-oriented executive synthesis with KPIs",
		Sections:       []string{"Strategic Summary", "Key Issues", "Impact Analysis", "Opportunities", "Risks", "Strategic Recommendations", "Action Plan"},
		Visualizations: []string{"Executive dashboard", "Strategic matrices", "ROI charts", "KPI scorecards"},
	},
}

var templateAliases = map[string]string{
	"academique": "academic",
	"executif":   "executive",
}

// Templates is a registry of report types.
type Templates struct {
	byKey map[string]ReportTemplate
}

// NewTemplates returns the built-in templates with overrides applied by key.
func NewTemplates(overrides ...ReportTemplate) *Templates {
	t := &Templates{byKey: make(map[string]ReportTemplate)}
	for _, tmpl := range builtinTemplates {
		t.byKey[tmpl.Key] = tmpl
	}
	for _, o := range overrides {
		key := strings.ToLower(strings.TrimSpace(o.Key))
		if key == "" {
			continue
		}
		base := t.byKey[key]
		base.Key = key
		if o.Title != "" {
			base.Title = o.Title
		}
		if o.Focus != "" {
			base.Focus = o.Focus
		}
		if len(o.Sections) > 0 {
			base.Sections = o.Sections
		}
		if len(o.Visualizations) > 0 {
			base.Visualizations = o.Visualizations
		}
		t.byKey[key] = base
	}
	return t
}

// Get looks a template up by key or alias. An empty key selects the default.
func (t *Templates) Get(key string) (ReportTemplate, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = DefaultTemplate
	}
	if alias, ok := templateAliases[key]; ok {
		key = alias
	}
	tmpl, ok := t.byKey[key]
	return tmpl, ok
}
