// Package reorder turns an inventory CSV into per-part reorder advice.
//
// Each row's reorder quantity tops stock up to TargetDays of average demand
// plus SafetyStock. Rows that need stock get a short explanation from the
// generative model when one is configured.
package reorder
