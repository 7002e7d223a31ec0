package cli

import "errors"

var (
	errUnknownCommand    = errors.New("unknown command")
	errUnknownFlag       = errors.New("unknown flag")
	errFlagRequiresArg   = errors.New("flag requires an argument")
	errKindRequired      = errors.New("kind required (component or requirement)")
	errUnknownKind       = errors.New("unknown kind (want component or requirement)")
	errIDRequired        = errors.New("id required")
	errInvalidID         = errors.New("invalid id")
	errFileRequired      = errors.New("staging document path required")
	errTooManyArgs       = errors.New("too many arguments")
	errComponentRequired = errors.New("--component is required for requirements")
	errComponentNotKind  = errors.New("--component only applies to requirements")
	errPriorityNotKind   = errors.New("--priority only applies to requirements")
	errDeleteAborted     = errors.New("delete aborted")
	errNoEditorFound     = errors.New("no editor found (set editor in config or $EDITOR)")
	errEditorFailed      = errors.New("editor failed")
)
