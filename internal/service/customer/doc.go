// Package customer implements customer profile management.
//
// Customers are the raw material of segmentation: their spend, visit,
// and activity attributes are what rule trees evaluate against. The
// service enforces per-owner email uniqueness; everything else is plain
// CRUD over the repository.
package customer
