package models

// InitResult is the outcome of one initialization pass. Expected failures
// (storage errors) are reported through Success/Message rather than an
// error so webhook and action callers decide how to surface them.
type InitResult struct {
	Success         bool     `json:"success"`
	NeedsOnboarding bool     `json:"needsOnboarding"`
	MissingFields   []string `json:"missingFields,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// MigrationResult is the outcome of migrating a single legacy record.
type MigrationResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	NeedsOnboarding bool   `json:"needsOnboarding"`
}

// BatchMigrationResult collects per-id outcomes of a batch migration run.
// Individual failures never abort the batch.
type BatchMigrationResult struct {
	Total    int                        `json:"total"`
	Migrated int                        `json:"migrated"`
	Failed   int                        `json:"failed"`
	Results  map[string]MigrationResult `json:"results"`
}

// MigrationStatus classifies every stored record by schema generation.
type MigrationStatus struct {
	Total           int `json:"total"`
	Migrated        int `json:"migrated"`
	NeedsMigration  int `json:"needsMigration"`
	NeedsOnboarding int `json:"needsOnboarding"`
}

// AccountStatus is what the client-side access gate polls while waiting
// for the webhook-driven record to become visible.
type AccountStatus struct {
	Exists          bool     `json:"exists"`
	Initialized     bool     `json:"initialized"`
	NeedsOnboarding bool     `json:"needsOnboarding"`
	MissingFields   []string `json:"missingFields,omitempty"`
}
