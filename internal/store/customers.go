package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Customer is a client site receiving recurring maintenance services.
type Customer struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Phone              string    `db:"phone" json:"phone"`
	Email              string    `db:"email" json:"email"`
	Address            string    `db:"address" json:"address"`
	NotificationPhones PhoneList `db:"notification_phones" json:"notificationPhones"`
	FloorPlanPath      *string   `db:"floor_plan_path" json:"floorPlanPath,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}

// CustomerDetail is a customer together with its service subscriptions.
type CustomerDetail struct {
	Customer
	Services []ServiceDetail `json:"services"`
}

// ServiceDetail is a service record with its detail rows.
type ServiceDetail struct {
	ServiceRecord
	Filters []FilterDetail `json:"filters"`
}

const customerColumns = `id, name, phone, email, address, notification_phones, floor_plan_path, created_at`

// CreateCustomer inserts a customer. The caller supplies the ID.
func (s *Store) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.NotificationPhones, c.FloorPlanPath, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// SetFloorPlanPath attaches an uploaded floor-plan object to a customer.
func (s *Store) SetFloorPlanPath(ctx context.Context, customerID, path string) error {
	res, err := s.exec(ctx, `UPDATE customers SET floor_plan_path = ? WHERE id = ?`, path, customerID)
	if err != nil {
		return fmt.Errorf("failed to set floor plan path: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("failed to set floor plan path for customer %s: %w", customerID, err)
	}
	return nil
}

// UpdateNotificationPhones replaces a customer's notification phones.
func (s *Store) UpdateNotificationPhones(ctx context.Context, customerID string, phones PhoneList) error {
	res, err := s.exec(ctx, `UPDATE customers SET notification_phones = ? WHERE id = ?`, phones, customerID)
	if err != nil {
		return fmt.Errorf("failed to update notification phones: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("failed to update notification phones for customer %s: %w", customerID, err)
	}
	return nil
}

// DeleteCustomer removes a customer row. Deleting a missing row is not an error.
func (s *Store) DeleteCustomer(ctx context.Context, customerID string) error {
	if _, err := s.exec(ctx, `DELETE FROM customers WHERE id = ?`, customerID); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *Store) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var c Customer
	err := s.get(ctx, &c, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := s.selectAll(ctx, &out, `SELECT `+customerColumns+` FROM customers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return out, nil
}

// GetCustomerDetail loads a customer with its service records and filter details.
func (s *Store) GetCustomerDetail(ctx context.Context, customerID string) (*CustomerDetail, error) {
	c, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	records, err := s.ListServiceRecords(ctx, customerID)
	if err != nil {
		return nil, err
	}

	detail := &CustomerDetail{Customer: *c, Services: make([]ServiceDetail, 0, len(records))}
	for _, rec := range records {
		filters, err := s.ListFilterDetails(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		detail.Services = append(detail.Services, ServiceDetail{ServiceRecord: rec, Filters: filters})
	}
	return detail, nil
}
