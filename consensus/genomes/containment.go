package genomes

import (
	"mossgarden/consensus/geo"
)

// WithinTerritory reports whether location lies inside the genome's radius (inclusive).
func WithinTerritory(location geo.Location, genome Genome) bool {
	return geo.Between(location, genome.Center) <= float64(genome.Radius)
}
