package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"
	MetricsRoute     = "/metrics"

	AccessParent    = "/api/v2.0/accessmanager/"
	ReadRoute       = AccessParent + "read"
	UploadRoute     = AccessParent + "upload"
	UploadMainRoute = AccessParent + "upload/main"
	DeleteRoute     = AccessParent + "delete"
	CommitRoute     = AccessParent + "commit"
	ListFilesRoute  = AccessParent + "files"

	AdminParent           = "/v1/admin/"
	ListActiveTokensRoute = AdminParent + "tokens"
	ListAuditsRoute       = AdminParent + "audits"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)

// Query parameters of the access routes.
const (
	OrganizationParam = "organization"
	SpaceParam        = "space"
	RootDirParam      = "rootDir"
	PatternParam      = "pattern"
)
