package flows

// Deps groups flow dependency sets. The root client builds this once and delegates
// Login and Logout to the matching flow implementation.
type Deps struct {
	Login  LoginDeps
	Logout LogoutDeps
}
