package backend

import "github.com/google/uuid"

func newUUIDFallback() string {
	return uuid.NewString()
}
