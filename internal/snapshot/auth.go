package snapshot

// Authenticator provides credentials for a registry.
type Authenticator interface {
	// Authenticate returns credentials for the given registry. An empty
	// username falls back to the Docker keychain.
	Authenticate(registry string) (username, password string, err error)
}

// Credentials is a fixed username/password pair used for every registry.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Authenticate(string) (string, string, error) {
	return c.Username, c.Password, nil
}
