package overpass

// Response is the JSON document returned by the interpreter endpoint for
// [out:json] queries.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	OSM3S     OSM3S     `json:"osm3s"`
	Elements  []Element `json:"elements"`
	Remark    string    `json:"remark,omitempty"`
}

// OSM3S carries database freshness metadata.
type OSM3S struct {
	TimestampOSMBase string `json:"timestamp_osm_base"`
	Copyright        string `json:"copyright"`
}

// Element is one returned OSM object. Nodes carry lat/lon; either may be
// absent, so both are pointers.
type Element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  *float64          `json:"lat,omitempty"`
	Lon  *float64          `json:"lon,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Tag returns the value of key, or "" when absent.
func (e Element) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}
