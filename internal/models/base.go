package models

import (
	"github.com/google/uuid"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}
