package domain

// FileStat is one row of the diff statistics table
type FileStat struct {
	Inserted int
	Deleted  int
	Modified int
	Filename string
}

// StatsSummary aggregates file statistics of a dataset
type StatsSummary struct {
	Dataset  Dataset `json:"dataset"`
	Files    int     `json:"files"`
	Inserted int64   `json:"inserted"`
	Deleted  int64   `json:"deleted"`
	Modified int64   `json:"modified"`
}

// ProjectSummary aggregates ledger rows for one project
type ProjectSummary struct {
	Project          Project `json:"project"`
	Processed        int     `json:"processed"`
	AlreadyProcessed int     `json:"already_processed"`
	Deprecated       int     `json:"deprecated"`
	Failed           int     `json:"failed"`
	Files            int     `json:"files"`
}

// DatasetSummary aggregates ledger rows for a dataset
type DatasetSummary struct {
	Dataset  Dataset           `json:"dataset"`
	Projects []*ProjectSummary `json:"projects"`
	Total    ProjectSummary    `json:"total"`
}
