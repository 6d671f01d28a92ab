// Package payroll is the payroll roster application.
//
// The admin enrolls employees with a per-cycle amount, pauses or removes
// them, and disburses salaries in batches. Anyone may fund the application
// account. An employee is due once per cycle; the cycle length comes from
// the instance configuration.
//
// Employee records are stored in the sub-field form so that individual
// fields stay addressable.
package payroll
