// Package dataset reads subdivision populations and published totals from CSV
// and YAML files. Row order is preserved because apportionment ties are broken
// by input position.
package dataset
