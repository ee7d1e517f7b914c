package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key has not been set, so
// inserts work against stores without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
