// Package report stores host loop measurements in a SQL database via GORM.
//
// A run is one execution of the host loop. Every measurement taken during
// the run is stored as a Sample under the run's ID, so the firing accuracy of
// each group can be inspected afterwards. Samples are a record of what
// happened; nothing reads them back into a scheduler.
package report
