// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain layer stays free of
// ORM concerns; each model converts with ToDomain and a FromDomain
// constructor.
//
// Tables:
//   - units, unit_events: tagged trees and their append-only status ledger
//   - zones, zone_plantings: plots and planned quantities per stock group
//   - allocation_holds: pooled allocations against stock groups
package models
