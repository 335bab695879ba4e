package cli

// Error codes returned in CLIError.Code, one per pipeline stage a plan can
// fail at.
const (
	ErrCodeGeneric  = "E001"
	ErrCodePlanLoad = "E100"
	ErrCodeCoalesce = "E200"
	ErrCodeFinalize = "E300"
	ErrCodeCrush    = "E400"
	ErrCodeMerge    = "E500"
	ErrCodeCache    = "E600"
)
