package osmparser

type NodeType uint8

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

var (
	// drivable highway classes, https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
	acceptedHighway = map[string]struct{}{
		"motorway":         struct{}{},
		"motorway_link":    struct{}{},
		"trunk":            struct{}{},
		"trunk_link":       struct{}{},
		"primary":          struct{}{},
		"primary_link":     struct{}{},
		"secondary":        struct{}{},
		"secondary_link":   struct{}{},
		"residential":      struct{}{},
		"residential_link": struct{}{},
		"service":          struct{}{},
		"tertiary":         struct{}{},
		"tertiary_link":    struct{}{},
		"road":             struct{}{},
		"unclassified":     struct{}{},
		"living_street":    struct{}{},
		"motorroad":        struct{}{},
	}

	// service roads that are not part of the drivable network
	skipService = map[string]struct{}{
		"parking":          struct{}{},
		"parking_aisle":    struct{}{},
		"private":          struct{}{},
		"emergency_access": struct{}{},
		"driveway":         struct{}{},
	}

	restrictedAccess = map[string]struct{}{
		"no":      struct{}{},
		"private": struct{}{},
	}
)
