package tools

// Definition describes a tool exposed to MCP clients.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	// LongRunning tools return an acknowledgement at once and deliver
	// their outcome through a result resource.
	LongRunning bool
}

type ParameterType string

const (
	ParamString  ParameterType = "string"
	ParamNumber  ParameterType = "number"
	ParamBoolean ParameterType = "boolean"
)

type Parameter struct {
	Name        string
	Type        ParameterType
	Description string
	Required    bool
	Enum        []string
}

// Tool names.
const (
	Navigate           = "navigate"
	ClickButton        = "click_button"
	AnalyzeDOM         = "analyze_dom"
	HighlightElements  = "highlight_elements"
	FindDrawingMethods = "find_drawing_methods"
	DrawShape          = "draw_shape"
	GetTaskResult      = "get_task_result"
	ListTasks          = "list_tasks"
	Shutdown           = "shutdown"
)

var definitions = []Definition{
	{
		Name:        Navigate,
		Description: "Navigate the shared browser to a URL, opening the browser first if needed.",
		Parameters: []Parameter{
			{Name: "url", Type: ParamString, Description: "the URL to open", Required: true},
		},
	},
	{
		Name:        ClickButton,
		Description: "Click a button on the current page. Waits up to 3 seconds for it to become visible.",
		Parameters: []Parameter{
			{Name: "selector", Type: ParamString, Description: "CSS selector or text selector of the button", Required: true},
		},
	},
	{
		Name:        AnalyzeDOM,
		Description: "List the visible buttons and links on the current page.",
	},
	{
		Name:        HighlightElements,
		Description: "Highlight every visible interactive element on the current page with a pulsing border and a label.",
	},
	{
		Name: FindDrawingMethods,
		Description: "Search rayon.design for the tools and steps needed to draw a shape.",
		LongRunning: true,
		Parameters: []Parameter{
			{Name: "shape_name", Type: ParamString, Description: "the shape or object you want to draw", Required: true},
		},
	},
	{
		Name: DrawShape,
		Description: "Draw a shape in the rayon.design CAD interface.",
		LongRunning: true,
		Parameters: []Parameter{
			{Name: "shape_name", Type: ParamString, Description: "name of the shape to draw (e.g. square, circle, triangle)", Required: true},
		},
	},
	{
		Name:        GetTaskResult,
		Description: "Return the current result text for a background task, same as reading its result resource.",
		Parameters: []Parameter{
			{Name: "request_id", Type: ParamString, Description: "request id from the acknowledgement", Required: true},
		},
	},
	{
		Name:        ListTasks,
		Description: "List known background tasks with their state.",
	},
	{
		Name:        Shutdown,
		Description: "Shut down the MCP server.",
	},
}

// List returns all registered tool definitions.
func List() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup finds a tool definition by name.
func Lookup(name string) (Definition, bool) {
	for _, def := range definitions {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
