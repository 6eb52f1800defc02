package ridb

const (
	// DefaultBaseURL is the RIDB facilities search endpoint
	DefaultBaseURL = "https://ridb.recreation.gov/api/v1/facilities"

	// DefaultLimit is the number of facilities requested per search
	DefaultLimit = 20

	// CampgroundType is the FacilityTypeDescription kept from search results
	CampgroundType = "Campground"

	// MaxSearchResponseSize is the maximum size for RIDB search responses (10MB)
	MaxSearchResponseSize = 10 << 20

	// MaxErrorBodySize is the maximum bytes to read from error response bodies
	MaxErrorBodySize = 1024
)
