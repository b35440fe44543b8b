package region

// defaultCountries is the built-in table. Boxes are deliberately coarse
// (lat_min, lon_min, lat_max, lon_max); the UK keeps its four-box split.
var defaultCountries = []Country{
	{Code: "uk", Boxes: []BoundingBox{
		Box(49.9, -8.6, 55.0, -2.0),
		Box(55.0, -8.6, 60.9, -2.0),
		Box(49.9, -2.0, 55.0, 1.8),
		Box(55.0, -2.0, 60.9, 1.8),
	}},
	{Code: "fr", Boxes: []BoundingBox{Box(41.3, -5.1, 51.1, 9.6)}},
	{Code: "de", Boxes: []BoundingBox{Box(47.3, 5.9, 55.1, 15.0)}},
	{Code: "es", Boxes: []BoundingBox{Box(36.0, -9.4, 43.8, 4.3)}},
	{Code: "it", Boxes: []BoundingBox{Box(36.6, 6.6, 47.1, 18.5)}},
	{Code: "nl", Boxes: []BoundingBox{Box(50.7, 3.4, 53.6, 7.2)}},
	{Code: "be", Boxes: []BoundingBox{Box(49.5, 2.5, 51.5, 6.4)}},
	{Code: "ie", Boxes: []BoundingBox{Box(51.4, -10.5, 55.4, -5.3)}},
	{Code: "pt", Boxes: []BoundingBox{Box(36.9, -9.5, 42.1, -6.2)}},
	{Code: "se", Boxes: []BoundingBox{Box(55.3, 11.1, 69.1, 24.2)}},
	{Code: "no", Boxes: []BoundingBox{Box(57.9, 4.7, 71.2, 31.1)}},
	{Code: "dk", Boxes: []BoundingBox{Box(54.5, 7.7, 57.9, 12.7)}},
	{Code: "ch", Boxes: []BoundingBox{Box(45.8, 5.96, 47.8, 10.5)}},
	{Code: "at", Boxes: []BoundingBox{Box(46.4, 9.5, 49.0, 17.2)}},
	{Code: "pl", Boxes: []BoundingBox{Box(49.0, 14.1, 54.8, 24.1)}},
	{Code: "cz", Boxes: []BoundingBox{Box(48.6, 12.1, 51.1, 19.1)}},
	{Code: "hu", Boxes: []BoundingBox{Box(45.7, 16.1, 48.6, 22.9)}},
	{Code: "ro", Boxes: []BoundingBox{Box(43.6, 20.3, 48.3, 29.7)}},
	{Code: "bg", Boxes: []BoundingBox{Box(41.2, 22.4, 44.2, 28.6)}},
	{Code: "gr", Boxes: []BoundingBox{Box(34.8, 19.6, 41.7, 28.3)}},
	{Code: "us", Boxes: []BoundingBox{Box(24.5, -125.0, 49.5, -66.9)}},
	{Code: "ca", Boxes: []BoundingBox{Box(41.7, -141.0, 83.1, -52.6)}},
	{Code: "au", Boxes: []BoundingBox{Box(-44.0, 112.9, -10.7, 153.6)}},
	{Code: "nz", Boxes: []BoundingBox{Box(-47.3, 166.3, -34.4, 178.7)}},
}

// Default returns the built-in country table.
func Default() *Table {
	t, err := NewTable(defaultCountries)
	if err != nil {
		panic(err)
	}
	return t
}
