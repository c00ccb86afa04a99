// Package logg holds the zap field names shared across components.
package logg

const (
	Layer     = "layer"
	Operation = "operation"
	TaskID    = "task_id"
	Selector  = "selector"
	URL       = "url"
	Tool      = "tool"
	Step      = "step"
	Shape     = "shape"
)
