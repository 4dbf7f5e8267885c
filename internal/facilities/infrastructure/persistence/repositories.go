// Package persistence stores rooms, bookings, maintenance and users in SQLite or PostgreSQL.
package persistence

import (
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
)

// Repositories bundles the facilities stores over one connection.
type Repositories struct {
	Rooms       domain.RoomRepository
	Bookings    domain.BookingRepository
	Maintenance domain.MaintenanceRepository
	Users       domain.UserDirectory
}

// NewRepositories picks the implementations matching the connection's driver.
func NewRepositories(conn database.Connection) Repositories {
	if conn.Driver() == database.DriverPostgres {
		return Repositories{
			Rooms:       NewPostgresRoomRepository(conn),
			Bookings:    NewPostgresBookingRepository(conn),
			Maintenance: NewPostgresMaintenanceRepository(conn),
			Users:       NewPostgresUserDirectory(conn),
		}
	}
	return Repositories{
		Rooms:       NewSQLiteRoomRepository(conn),
		Bookings:    NewSQLiteBookingRepository(conn),
		Maintenance: NewSQLiteMaintenanceRepository(conn),
		Users:       NewSQLiteUserDirectory(conn),
	}
}
