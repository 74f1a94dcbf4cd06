package trace

// Level controls the verbosity of decision tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelDecisions captures candidacy, ambiguity, and flush records.
	LevelDecisions Level = "decisions"
)

var validLevels = map[Level]bool{
	LevelNone:      true,
	LevelDecisions: true,
	"":             true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is recognized.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
}

// Recorder collects decision records during a clustering run.
type Recorder struct {
	Config    Config
	Candidacy []CandidacyRecord
	Ambiguity []AmbiguityRecord
	Flushes   []FlushRecord
}

// NewRecorder creates a Recorder ready for use. With LevelNone, every
// Record* call is a no-op so a host can wire tracing unconditionally
// without paying for it.
func NewRecorder(config Config) *Recorder {
	return &Recorder{
		Config:    config,
		Candidacy: make([]CandidacyRecord, 0),
		Ambiguity: make([]AmbiguityRecord, 0),
		Flushes:   make([]FlushRecord, 0),
	}
}

// enabled reports whether this recorder should retain records.
func (r *Recorder) enabled() bool {
	return r != nil && r.Config.Level == LevelDecisions
}

// RecordCandidacy appends a candidacy evaluation record.
func (r *Recorder) RecordCandidacy(rec CandidacyRecord) {
	if !r.enabled() {
		return
	}
	r.Candidacy = append(r.Candidacy, rec)
}

// RecordAmbiguity appends an ambiguity resolution record.
func (r *Recorder) RecordAmbiguity(rec AmbiguityRecord) {
	if !r.enabled() {
		return
	}
	r.Ambiguity = append(r.Ambiguity, rec)
}

// RecordFlush appends a buffer-flush outcome record.
func (r *Recorder) RecordFlush(rec FlushRecord) {
	if !r.enabled() {
		return
	}
	r.Flushes = append(r.Flushes, rec)
}
