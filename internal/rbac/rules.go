package rbac

const (
	PermDocumentUpload  = "document:upload"
	PermDocumentView    = "document:view"
	PermDocumentProcess = "document:process"
	PermQuizGenerate    = "quiz:generate"
	PermQuizView        = "quiz:view"
	PermQuizAnswers     = "quiz:view-answers"
	PermQuizManage      = "quiz:manage"
	PermAttemptTake     = "attempt:take"
	PermAttemptViewOwn  = "attempt:view-own"
	PermAttemptViewAll  = "attempt:view-all"
	PermProgressView    = "progress:view-own"
	PermPasswordChange  = "user:change_password"
	PermEventsRead      = "events:read"
)

// RolePermissions is the default policy. A trailing "*" matches a prefix.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizView,
		PermAttemptTake,
		PermAttemptViewOwn,
		PermProgressView,
		PermPasswordChange,
	},
	"teacher": {
		"document:*",
		"quiz:*",
		PermAttemptViewAll,
		PermPasswordChange,
		PermEventsRead,
	},
	"admin": {"*"},
}
