package pipeline

// State is the position of one pipeline run in its lifecycle:
//
//	NoThumbnail -> ExtractingFrame -> GeneratingVariants -> Finalizing -> Done
//	                      |                   |                  |
//	                      +-------------------+------------------+-> Failed
//
// Done and Failed are terminal for a run. Failed never sets a thumbnail.
type State int

const (
	NoThumbnail State = iota
	ExtractingFrame
	GeneratingVariants
	Finalizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case NoThumbnail:
		return "no_thumbnail"
	case ExtractingFrame:
		return "extracting_frame"
	case GeneratingVariants:
		return "generating_variants"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Outcomes recorded on Result and in metrics.
const (
	OutcomeSuccess       = "success"
	OutcomeExtractFailed = "extract_failed"
	OutcomeVariantFailed = "variant_failed"
	OutcomeRecordMissing = "record_missing"
	OutcomeStoreError    = "store_error"
)
