package service

import (
	"context"
	"fmt"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/repository"
)

// ZoneSpec describes one zone of numbered lockers.
type ZoneSpec struct {
	Zone  string
	Count int
}

var sizeCycle = []domain.LockerSize{domain.LockerSizeSmall, domain.LockerSizeMedium, domain.LockerSizeLarge}

// LockerID formats a zone letter and number as A007.
func LockerID(zone string, n int) string {
	return fmt.Sprintf("%s%03d", zone, n)
}

// BuildLockers lays out zones in order. Display numbers run on across zones;
// sizes cycle per locker within a zone.
func BuildLockers(zones []ZoneSpec, outOfService []string) []domain.Locker {
	oos := make(map[string]bool, len(outOfService))
	for _, id := range outOfService {
		oos[normalizeID(id)] = true
	}

	var lockers []domain.Locker
	number := int32(0)
	for _, z := range zones {
		for i := 1; i <= z.Count; i++ {
			number++
			id := LockerID(z.Zone, i)
			status := domain.LockerStatusAvailable
			if oos[id] {
				status = domain.LockerStatusOutOfService
			}
			lockers = append(lockers, domain.Locker{
				ID:     id,
				Number: number,
				Zone:   z.Zone,
				Size:   sizeCycle[i%len(sizeCycle)],
				Status: status,
			})
		}
	}
	return lockers
}

// SeedRegistry writes any missing lockers; existing rows keep their state.
func SeedRegistry(ctx context.Context, repo repository.LockerRepository, zones []ZoneSpec, outOfService []string) error {
	return repo.Seed(ctx, BuildLockers(zones, outOfService))
}
