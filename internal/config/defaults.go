package config

// DefaultSeeds spans distant semantic regions of the French vocabulary so the first
// reconstruction is not degenerate.
var DefaultSeeds = []string{
	"vie", "mort", "amour", "temps", "monde", "homme", "femme", "enfant",
	"travail", "argent", "guerre", "paix", "liberté", "nature", "corps",
	"science", "art", "politique", "société", "histoire", "joie", "peur",
	"rouge", "grand", "vieux", "chien", "arbre", "montagne", "mer", "ville",
	"roi", "dieu", "soleil", "rêve", "silence",
}

// Defaults for the float solver knobs, which are pointers so that 0 can be set explicitly.
const (
	DefaultSimilarityThreshold = 0.1
	DefaultSimilarityFloor     = -0.5
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://cemantix.certitudes.org"
	}
	if cfg.Oracle.DelayMs == 0 {
		cfg.Oracle.DelayMs = 200
	}
	if cfg.Oracle.TimeoutMs == 0 {
		cfg.Oracle.TimeoutMs = 10000
	}
	ApplySolverDefaults(&cfg.Solver)
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/cemantix/models/frWac_non_lem_no_postag_no_phrase_200_cbow_cut100.bin"
	}
	if cfg.Embedding.Format == "" {
		cfg.Embedding.Format = "word2vec-bin"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/cemantix/data/sessions.db"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// ApplySolverDefaults fills zero solver values. InitialBatchSize falls back to
// CandidateBatchSize so every round requests at most one batch unless configured otherwise.
func ApplySolverDefaults(s *SolverConfig) {
	if s.CandidateBatchSize == 0 {
		s.CandidateBatchSize = 100
	}
	if s.InitialBatchSize == 0 {
		s.InitialBatchSize = s.CandidateBatchSize
	}
	if s.SimilarityThreshold == nil {
		s.SimilarityThreshold = Float(DefaultSimilarityThreshold)
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 20
	}
	if s.MinProbes == 0 {
		s.MinProbes = 5
	}
	if s.SimilarityFloor == nil {
		s.SimilarityFloor = Float(DefaultSimilarityFloor)
	}
	if s.MaxEmptyBatches == 0 {
		s.MaxEmptyBatches = 2
	}
	if s.Seeds == nil {
		s.Seeds = append([]string(nil), DefaultSeeds...)
	}
}
