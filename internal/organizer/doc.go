// Package organizer plans and executes the relocation of video files into a
// movie and show library.
//
// Engine.Plan runs each file through parsing, classification, and catalog
// matching with bounded concurrency, then assigns every entry an action on a
// single goroutine so destination collisions are resolved against the whole
// batch. Entries that are not confidently identified, or whose destination is
// taken, are routed to manual review.
//
// Engine.Execute applies a plan. It never overwrites files, records a status
// for every entry, and keeps going when individual moves fail. Dry runs report
// the same outcomes without touching the filesystem.
package organizer
