package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"occupancy/internal/model"
	"occupancy/internal/repository"
)

// OccupancyEntry is the live occupancy of one environment.
type OccupancyEntry struct {
	EnvironmentID    uuid.UUID             `json:"environmentId"`
	Name             string                `json:"name"`
	Type             model.EnvironmentType `json:"type"`
	Capacity         int                   `json:"capacity"`
	CurrentOccupancy int64                 `json:"currentOccupancy"`
	OccupationRate   float64               `json:"occupationRate"`
}

// DashboardService aggregates occupancy. Nothing is cached: every call reads
// the ledger.
type DashboardService interface {
	GetOccupationData(ctx context.Context) ([]OccupancyEntry, error)
}

type dashboardService struct {
	logRepo repository.AccessLogRepository
	envRepo repository.EnvironmentRepository
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(logRepo repository.AccessLogRepository, envRepo repository.EnvironmentRepository) DashboardService {
	return &dashboardService{logRepo: logRepo, envRepo: envRepo}
}

func (s *dashboardService) GetOccupationData(ctx context.Context) ([]OccupancyEntry, error) {
	counts, err := s.logRepo.CountOpenByEnvironment(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open sessions: %w", err)
	}
	envs, err := s.envRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	return BuildOccupancy(envs, counts), nil
}

// BuildOccupancy joins environments with their open-session counts.
// Counts for environments not in envs (deleted ones) are ignored.
func BuildOccupancy(envs []model.Environment, counts []model.OccupancyCount) []OccupancyEntry {
	byEnv := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byEnv[c.EnvironmentID] += c.Count
	}

	entries := make([]OccupancyEntry, 0, len(envs))
	for _, env := range envs {
		current := byEnv[env.ID]
		entries = append(entries, OccupancyEntry{
			EnvironmentID:    env.ID,
			Name:             env.Name,
			Type:             env.Type,
			Capacity:         env.Capacity,
			CurrentOccupancy: current,
			OccupationRate:   OccupationRate(current, env.Capacity),
		})
	}
	return entries
}

// OccupationRate is occupancy as a percentage of capacity rounded to two
// decimals, or 0 when capacity is not positive.
func OccupationRate(occupancy int64, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	rate := float64(occupancy) / float64(capacity) * 100
	return math.Round(rate*100) / 100
}
