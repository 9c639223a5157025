package models

type Station struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type StationCreateRequest struct {
	Name string `json:"name"`
}
