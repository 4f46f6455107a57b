package domain

import (
	"github.com/google/uuid"
)

// UserRole представляет роль пользователя в системе
type UserRole string

const (
	RoleAdmin  UserRole = "admin"  // Администратор сети станций
	RoleStaff  UserRole = "staff"  // Сотрудник станции
	RoleDriver UserRole = "driver" // Водитель
)

// Identity - кто выполняет операцию.
// Передается явно в каждый use case, из контекста не извлекается.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   UserRole  `json:"role"`
}

// IsDriver проверяет, является ли пользователь водителем
func (i Identity) IsDriver() bool {
	return i.Role == RoleDriver
}

// IsStaff возвращает true для сотрудников и администраторов
func (i Identity) IsStaff() bool {
	return i.Role == RoleStaff || i.Role == RoleAdmin
}

// CanAct проверяет, может ли пользователь действовать от имени владельца ownerID
func (i Identity) CanAct(ownerID uuid.UUID) bool {
	return i.IsStaff() || i.UserID == ownerID
}

// ValidRole проверяет, известна ли роль
func ValidRole(role UserRole) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleDriver:
		return true
	}
	return false
}
