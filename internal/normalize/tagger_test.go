package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_FullAddress(t *testing.T) {
	c, err := Tag("100 Main St, Springfield, IL")
	require.NoError(t, err)

	assert.Equal(t, "100", c.AddressNumber)
	assert.Equal(t, "Main", c.StreetName)
	assert.Equal(t, "St", c.StreetNamePostType)
	assert.Equal(t, "Springfield", c.PlaceName)
	assert.Equal(t, "IL", c.StateName)
}

func TestTag_MultiWordStreetName(t *testing.T) {
	c, err := Tag("6119 Landmark Center Blvd, Greensboro, NC")
	require.NoError(t, err)

	assert.Equal(t, "6119", c.AddressNumber)
	assert.Equal(t, "Landmark Center", c.StreetName)
	assert.Equal(t, "Blvd", c.StreetNamePostType)
	assert.Equal(t, "Greensboro", c.PlaceName)
	assert.Equal(t, "NC", c.StateName)
}

func TestTag_FullStateName(t *testing.T) {
	c, err := Tag("Minneapolis, Minnesota")
	require.NoError(t, err)

	assert.Empty(t, c.AddressNumber)
	assert.Empty(t, c.StreetName)
	assert.Equal(t, "Minneapolis", c.PlaceName)
	assert.Equal(t, "Minnesota", c.StateName)
}

func TestTag_Directionals(t *testing.T) {
	c, err := Tag("1234 W 5th Ave, Columbus, OH")
	require.NoError(t, err)

	assert.Equal(t, "1234", c.AddressNumber)
	assert.Equal(t, "W", c.StreetNamePreDirectional)
	assert.Equal(t, "5th", c.StreetName)
	assert.Equal(t, "Ave", c.StreetNamePostType)

	c, err = Tag("800 Ocean Blvd NE, Myrtle Beach, SC")
	require.NoError(t, err)

	assert.Equal(t, "NE", c.StreetNamePostDirectional)
	assert.Equal(t, "Blvd", c.StreetNamePostType)
	assert.Equal(t, "Ocean", c.StreetName)
}

func TestTag_OccupancySegment(t *testing.T) {
	c, err := Tag("100 Main St, Suite 5, Greensboro, NC")
	require.NoError(t, err)

	assert.Equal(t, "Suite", c.OccupancyType)
	assert.Equal(t, "5", c.OccupancyIdentifier)
	assert.Equal(t, "Greensboro", c.PlaceName)
	assert.Equal(t, "NC", c.StateName)
}

func TestTag_InlineOccupancy(t *testing.T) {
	c, err := Tag("250 Commerce Dr Ste 120, Fort Collins, CO")
	require.NoError(t, err)

	assert.Equal(t, "250", c.AddressNumber)
	assert.Equal(t, "Commerce", c.StreetName)
	assert.Equal(t, "Dr", c.StreetNamePostType)
	assert.Equal(t, "120", c.OccupancyIdentifier)
}

func TestTag_TrailingZip(t *testing.T) {
	c, err := Tag("100 Main St, Springfield, IL 62701")
	require.NoError(t, err)

	assert.Equal(t, "IL", c.StateName)
	assert.Equal(t, "62701", c.ZipCode)
	assert.Equal(t, "Springfield", c.PlaceName)
}

func TestTag_HighwayNumber(t *testing.T) {
	c, err := Tag("1400 Highway 101, Florence, OR")
	require.NoError(t, err)

	assert.Equal(t, "1400", c.AddressNumber)
	assert.Equal(t, "Highway 101", c.StreetName)
}

func TestTag_RepeatedLabel(t *testing.T) {
	_, err := Tag("100 Main St 456 Oak Ave, Springfield, IL")
	require.Error(t, err)

	var repeated *RepeatedLabelError
	require.ErrorAs(t, err, &repeated)
	assert.Equal(t, "AddressNumber", repeated.Label)
}

func TestTag_CityOnly(t *testing.T) {
	c, err := Tag("Springfield, IL")
	require.NoError(t, err)

	assert.Empty(t, c.StreetName)
	assert.Equal(t, "Springfield", c.PlaceName)
	assert.Equal(t, "IL", c.StateName)
}

func TestTag_StreetOnly(t *testing.T) {
	c, err := Tag("100 Main St")
	require.NoError(t, err)

	assert.Equal(t, "100", c.AddressNumber)
	assert.Equal(t, "Main", c.StreetName)
	assert.Equal(t, "St", c.StreetNamePostType)
	assert.Empty(t, c.PlaceName)
	assert.Empty(t, c.StateName)
}

func TestTag_Empty(t *testing.T) {
	_, err := Tag("   ")
	assert.Error(t, err)
}
