package store

import (
	"context"
	"fmt"
	"time"
)

// Filter detail kinds.
const (
	DetailReplacement = "replacement"
	DetailVOC         = "voc"
)

// ServiceRecord is a customer's subscription to one recurring service kind.
type ServiceRecord struct {
	ID         string    `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customerId"`
	Kind       string    `db:"kind" json:"kind"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// FilterDetail is a filter row owned by a service record.
type FilterDetail struct {
	ID              string   `db:"id" json:"id"`
	ServiceRecordID string   `db:"service_record_id" json:"serviceRecordId"`
	DetailKind      string   `db:"detail_kind" json:"detailKind"`
	FilterType      string   `db:"filter_type" json:"filterType"`
	Width           *float64 `db:"width" json:"width,omitempty"`
	Height          *float64 `db:"height" json:"height,omitempty"`
	Depth           *float64 `db:"depth" json:"depth,omitempty"`
	Quantity        int      `db:"quantity" json:"quantity"`
}

// CreateServiceRecord inserts a service record. The caller supplies the ID.
func (s *Store) CreateServiceRecord(ctx context.Context, r *ServiceRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO service_records (id, customer_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.CustomerID, r.Kind, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create service record: %w", err)
	}
	return nil
}

// DeleteServiceRecord removes a service record. Its filter details must be
// deleted first.
func (s *Store) DeleteServiceRecord(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM service_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete service record: %w", err)
	}
	return nil
}

// ListServiceRecords returns a customer's service records in creation order.
func (s *Store) ListServiceRecords(ctx context.Context, customerID string) ([]ServiceRecord, error) {
	var out []ServiceRecord
	err := s.selectAll(ctx, &out,
		`SELECT id, customer_id, kind, created_at FROM service_records WHERE customer_id = ? ORDER BY created_at, id`,
		customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}
	return out, nil
}

// CreateFilterDetail inserts a filter detail row. The caller supplies the ID.
func (s *Store) CreateFilterDetail(ctx context.Context, d *FilterDetail) error {
	_, err := s.exec(ctx,
		`INSERT INTO filter_details (id, service_record_id, detail_kind, filter_type, width, height, depth, quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ServiceRecordID, d.DetailKind, d.FilterType, d.Width, d.Height, d.Depth, d.Quantity)
	if err != nil {
		return fmt.Errorf("failed to create filter detail: %w", err)
	}
	return nil
}

// DeleteFilterDetails removes every detail row owned by a service record.
func (s *Store) DeleteFilterDetails(ctx context.Context, serviceRecordID string) error {
	if _, err := s.exec(ctx, `DELETE FROM filter_details WHERE service_record_id = ?`, serviceRecordID); err != nil {
		return fmt.Errorf("failed to delete filter details: %w", err)
	}
	return nil
}

// ListFilterDetails returns the detail rows owned by a service record.
func (s *Store) ListFilterDetails(ctx context.Context, serviceRecordID string) ([]FilterDetail, error) {
	var out []FilterDetail
	err := s.selectAll(ctx, &out,
		`SELECT id, service_record_id, detail_kind, filter_type, width, height, depth, quantity
		 FROM filter_details WHERE service_record_id = ? ORDER BY id`,
		serviceRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list filter details: %w", err)
	}
	return out, nil
}
