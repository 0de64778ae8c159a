package utils

import (
	"log"

	"github.com/google/uuid"
)

// GetUUID returns a fresh UUID, used as the client identifier sent in the
// initialize request's ClientID field.
func GetUUID() string {
	u1, err := uuid.NewUUID()
	if err != nil {
		log.Fatal(err)
	}
	return u1.String()
}
