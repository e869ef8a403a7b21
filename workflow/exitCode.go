package workflow

import "errors"

const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitGeneration = 2
	ExitResolution = 3
	ExitLoad       = 4
	ExitQC         = 5
)

// ExitCode maps a run error to the process exit status used by the cmd tools.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		genErr *GenerationError
		dupErr *DuplicatePeriodError
		resErr *ResolutionError
		ldErr  *LoadError
		qcErr  *QCTriggerError
	)
	switch {
	case errors.As(err, &genErr), errors.As(err, &dupErr):
		return ExitGeneration
	case errors.As(err, &resErr):
		return ExitResolution
	case errors.As(err, &qcErr):
		return ExitQC
	case errors.As(err, &ldErr):
		return ExitLoad
	}
	return ExitFailure
}
