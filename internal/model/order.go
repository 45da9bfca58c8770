package model

import (
	"fmt"
	"sort"
	"time"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OrderStatus is the lifecycle of an order on the device.
type OrderStatus int

const (
	OrderOngoing OrderStatus = iota
	OrderCompleted
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOngoing:
		return "ongoing"
	case OrderCompleted:
		return "completed"
	case OrderCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("order_status(%d)", int(s))
	}
}

// Order is a stop the driver has to visit.
type Order struct {
	ID        OrderID     `json:"id"`
	Status    OrderStatus `json:"status"`
	Address   string      `json:"address,omitempty"`
	Note      string      `json:"note,omitempty"`
	Location  Coordinate  `json:"location"`
	CreatedAt time.Time   `json:"created_at"`
}

// Place is a geofence the driver visited.
type Place struct {
	ID       PlaceID    `json:"id"`
	Name     string     `json:"name,omitempty"`
	Address  string     `json:"address,omitempty"`
	Location Coordinate `json:"location"`
}

// History summarizes the day's tracking.
type History struct {
	Distance    int           `json:"distance"` // meters
	Duration    time.Duration `json:"duration"`
	Coordinates []Coordinate  `json:"coordinates,omitempty"`
}

// OrderSet indexes orders by id.
func OrderSet(orders []Order) map[OrderID]Order {
	out := make(map[OrderID]Order, len(orders))
	for _, o := range orders {
		out[o.ID] = o
	}
	return out
}

// PlaceSet indexes places by id.
func PlaceSet(places []Place) map[PlaceID]Place {
	out := make(map[PlaceID]Place, len(places))
	for _, p := range places {
		out[p.ID] = p
	}
	return out
}

// SortedPlaces returns the places ordered by id.
func SortedPlaces(places map[PlaceID]Place) []Place {
	if len(places) == 0 {
		return nil
	}
	out := make([]Place, 0, len(places))
	for _, p := range places {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortedOrders returns the orders ordered by id.
func SortedOrders(orders map[OrderID]Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
