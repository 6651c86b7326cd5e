package gtfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

var sampleFeed = map[string]string{
	"routes.txt": "\ufeffroute_id,route_short_name,route_long_name,route_type,route_color,route_text_color\n" +
		"N,N,Nittany Mall,3,0055A4,FFFFFF\n" +
		"V,V,Vairo Boulevard,,,\n",
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,stop_code,stop_desc,location_type\n" +
		"HUB,HUB-Robeson Center,40.7982,-77.8599,100,Pollock Road,0\n" +
		"CAT,Atherton & College,40.7934,-77.8600,101,,0\n" +
		"NODE,Generic node,,,,,3\n",
	"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id,shape_id\n" +
		"N,WK,N1,Nittany Mall,0,SHP1\n" +
		"N,WK,N2,Nittany Mall,0,SHP1\n" +
		"V,WK,V1,Vairo,1,\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type\n" +
		"N1,08:05:00,08:05:00,CAT,2,0,0\n" +
		"N1,08:00:00,08:00:00,HUB,1,0,0\n" +
		"N2,25:10:00,25:10:00,HUB,1,0,0\n" +
		"V1, 09:00:00 ,09:00:00,HUB,1,,\n",
	"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
		"SHP1,40.7934,-77.8600,2\n" +
		"SHP1,40.7982,-77.8599,1\n",
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func withFile(files map[string]string, name, content string) map[string]string {
	out := make(map[string]string, len(files))
	for k, v := range files {
		out[k] = v
	}
	if content == "" {
		delete(out, name)
	} else {
		out[name] = content
	}
	return out
}

func writeZipFile(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, files), 0o644))
	return path
}
