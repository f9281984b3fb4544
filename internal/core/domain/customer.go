package domain

import "time"

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubService is the typed catalog projection resolved when sizing a
// reservation. Catalog CRUD lives outside this service.
type SubService struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	ServiceID   string `json:"serviceId,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
}
