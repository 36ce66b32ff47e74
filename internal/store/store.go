package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	SyncTechnicians(ctx context.Context, now time.Time, techs []model.TechnicianLocation) ([]string, error)
	SyncAssignments(ctx context.Context, now time.Time, wos []model.WorkOrderLocation) ([]Assignment, error)
	RecordRun(ctx context.Context, run *model.PollRun) error
	RecentRuns(ctx context.Context, limit int) ([]model.PollRun, error)
	TechnicianTrack(ctx context.Context, technicianID string, since time.Time) ([]model.TechnicianTrack, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SyncTechnicians stores the latest technician positions. A technician whose
// position changed has the previous one archived as a track segment; one that
// left the feed has its position archived and removed. It returns the IDs of
// technicians that moved.
func (s *gormStore) SyncTechnicians(ctx context.Context, now time.Time, techs []model.TechnicianLocation) ([]string, error) {
	techs = uniqueTechnicians(techs)
	current, err := s.fetchAllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch technician positions: %w", err)
	}

	var moved []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertTechnicians(tx, techs, now); err != nil {
			return err
		}

		for _, t := range techs {
			old, exists := current[t.ID]
			if exists {
				if old.Latitude != t.Latitude || old.Longitude != t.Longitude {
					if err := archivePosition(tx, old, now); err != nil {
						return err
					}
					updated := preparePosition(t, now)
					if err := tx.Save(&updated).Error; err != nil {
						return fmt.Errorf("failed to update position of technician %s: %w", t.ID, err)
					}
					moved = append(moved, t.ID)
				}
				delete(current, t.ID)
				continue
			}

			pos := preparePosition(t, now)
			if err := tx.Create(&pos).Error; err != nil {
				return fmt.Errorf("failed to create position of technician %s: %w", t.ID, err)
			}
		}

		// Technicians no longer present upstream.
		for _, remaining := range current {
			if err := archivePosition(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Where("technician_id = ?", remaining.TechnicianID).Delete(&model.TechnicianPosition{}).Error; err != nil {
				return fmt.Errorf("failed to delete position of technician %s: %w", remaining.TechnicianID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// archivePosition moves a no longer current position to the track table.
func archivePosition(tx *gorm.DB, pos model.TechnicianPosition, observedAt time.Time) error {
	track := model.TechnicianTrack{
		TechnicianID: pos.TechnicianID,
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		ReportedAt:   pos.ReportedAt,
		PeriodStart:  pos.ObservedAt,
		PeriodEnd:    observedAt,
	}
	if err := tx.Create(&track).Error; err != nil {
		return fmt.Errorf("failed to archive position of technician %s: %w", pos.TechnicianID, err)
	}
	return nil
}

// uniqueTechnicians keeps the first record of each technician ID.
func uniqueTechnicians(techs []model.TechnicianLocation) []model.TechnicianLocation {
	seen := make(map[string]struct{}, len(techs))
	out := make([]model.TechnicianLocation, 0, len(techs))
	for _, t := range techs {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func preparePosition(t model.TechnicianLocation, now time.Time) model.TechnicianPosition {
	return model.TechnicianPosition{
		TechnicianID: t.ID,
		ObservedAt:   now,
		Latitude:     t.Latitude,
		Longitude:    t.Longitude,
		ReportedAt:   t.LocationTimestamp,
	}
}

func upsertTechnicians(tx *gorm.DB, techs []model.TechnicianLocation, now time.Time) error {
	if len(techs) == 0 {
		return nil
	}
	rows := make([]model.Technician, 0, len(techs))
	for _, t := range techs {
		rows = append(rows, model.Technician{ID: t.ID, Name: t.Name, Email: t.Email, CreatedAt: now, UpdatedAt: now})
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("batch upsert technicians failed: %w", err)
	}
	return nil
}

// SyncAssignments records the technician of every work order and reports the
// ones that were newly assigned since the previous call. The first call on an
// empty table only seeds it and reports nothing.
func (s *gormStore) SyncAssignments(ctx context.Context, now time.Time, wos []model.WorkOrderLocation) ([]Assignment, error) {
	logger := logging.Component("store")

	existing, err := s.fetchAllAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}
	bootstrap := len(existing) == 0
	if bootstrap && len(wos) > 0 {
		logger.Info().Int("work_orders", len(wos)).Msg("seeding assignment table; no notifications this round")
	}

	var (
		changed []model.WorkOrderAssignment
		events  []Assignment
		seen    = make(map[string]struct{}, len(wos))
	)
	for _, wo := range wos {
		if _, dup := seen[wo.ID]; dup {
			continue
		}
		seen[wo.ID] = struct{}{}

		row := model.WorkOrderAssignment{
			RecordID:    wo.ID,
			WorkOrderID: wo.WorkOrderID,
			Technician:  wo.Technician,
			Step:        string(wo.Step),
			Priority:    string(wo.Priority),
			UpdatedAt:   now,
		}
		old, ok := existing[wo.ID]
		switch {
		case !ok:
			changed = append(changed, row)
			if !bootstrap && wo.Technician != model.Unassigned {
				events = append(events, newAssignment(wo, ""))
			}
		case old.Technician != wo.Technician:
			changed = append(changed, row)
			if wo.Technician != model.Unassigned {
				events = append(events, newAssignment(wo, old.Technician))
			}
		case old.Step != row.Step || old.Priority != row.Priority || old.WorkOrderID != row.WorkOrderID:
			changed = append(changed, row)
		}
	}

	var gone []string
	for id := range existing {
		if _, ok := seen[id]; !ok {
			gone = append(gone, id)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changed) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "record_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"work_order_id", "technician", "step", "priority", "updated_at"}),
			}).Create(&changed).Error; err != nil {
				return fmt.Errorf("batch upsert assignments failed: %w", err)
			}
		}
		if len(gone) > 0 {
			if err := tx.Where("record_id IN ?", gone).Delete(&model.WorkOrderAssignment{}).Error; err != nil {
				return fmt.Errorf("failed to delete stale assignments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func newAssignment(wo model.WorkOrderLocation, previous string) Assignment {
	return Assignment{
		RecordID:    wo.ID,
		WorkOrderID: wo.WorkOrderID,
		Technician:  wo.Technician,
		Previous:    previous,
		Step:        wo.Step,
		Priority:    wo.Priority,
	}
}

// RecordRun stores the outcome of a poll.
func (s *gormStore) RecordRun(ctx context.Context, run *model.PollRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record poll run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest poll runs, newest first.
func (s *gormStore) RecentRuns(ctx context.Context, limit int) ([]model.PollRun, error) {
	var runs []model.PollRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list poll runs: %w", err)
	}
	return runs, nil
}

// TechnicianTrack returns the archived positions of a technician whose period
// ended after since, oldest first, followed by the current position if any.
func (s *gormStore) TechnicianTrack(ctx context.Context, technicianID string, since time.Time) ([]model.TechnicianTrack, error) {
	var tracks []model.TechnicianTrack
	if err := s.db.WithContext(ctx).
		Where("technician_id = ? AND period_end >= ?", technicianID, since).
		Order("period_start ASC").
		Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch track of technician %s: %w", technicianID, err)
	}

	var current []model.TechnicianPosition
	if err := s.db.WithContext(ctx).Where("technician_id = ?", technicianID).Limit(1).Find(&current).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch position of technician %s: %w", technicianID, err)
	}
	for _, pos := range current {
		tracks = append(tracks, model.TechnicianTrack{
			TechnicianID: pos.TechnicianID,
			Latitude:     pos.Latitude,
			Longitude:    pos.Longitude,
			ReportedAt:   pos.ReportedAt,
			PeriodStart:  pos.ObservedAt,
		})
	}
	return tracks, nil
}

func (s *gormStore) fetchAllPositions(ctx context.Context) (map[string]model.TechnicianPosition, error) {
	var positions []model.TechnicianPosition
	if err := s.db.WithContext(ctx).Find(&positions).Error; err != nil {
		return nil, err
	}
	out := make(map[string]model.TechnicianPosition, len(positions))
	for _, p := range positions {
		out[p.TechnicianID] = p
	}
	return out, nil
}

func (s *gormStore) fetchAllAssignments(ctx context.Context) (map[string]model.WorkOrderAssignment, error) {
	var rows []model.WorkOrderAssignment
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]model.WorkOrderAssignment, len(rows))
	for _, r := range rows {
		out[r.RecordID] = r
	}
	return out, nil
}
