package common

// Audit actions written by the auth service.
const (
	ActionRegister       = "user.register"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionLocked         = "user.locked"
	ActionUnlock         = "user.unlock"
	ActionDeactivate     = "user.delete"
	ActionReactivate     = "user.reactivate"
	Action2FAEnabled     = "2fa.enabled"
	Action2FADisabled    = "2fa.disabled"
	ActionPasswordChange = "password.changed"
)

// EntityUser is the entity type recorded for account-level audit entries.
const EntityUser = "User"
