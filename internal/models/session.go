package models

import "time"

type Player struct {
	ID        int64     `json:"id" redis:"id"`
	Username  string    `json:"username" redis:"username"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}

type UserSession struct {
	ID           int64     `json:"id" redis:"id"`
	SessionID    string    `json:"session_id" redis:"session_id"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
	LastAccessed time.Time `json:"last_accessed" redis:"last_accessed"`
}
