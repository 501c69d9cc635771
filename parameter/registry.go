package parameter

// registry is the static data table the parameter package is built from.
// Bounds and alternates are drawn from common NWP provider conventions
// (ECMWF/NCEP GRIB2 short names, CF-style aliases), the way a reference
// GRIB2 decoder enumerates its supported fields in a -list flag.
var registry = []Parameter{
	{
		Name:             "temperature_sl",
		Description:      "Air temperature at screen level (~2m)",
		Unit:             "K",
		Lower:            173.15,
		Upper:            333.15,
		OutlierThreshold: 0.01,
		Alternates:       []string{"t", "t2m", "tas", "TMP"},
	},
	{
		Name:             "downward_shortwave_radiation_flux_gl",
		Description:      "Surface downward shortwave radiation flux",
		Unit:             "W/m^2",
		Lower:            0,
		Upper:            1500,
		OutlierThreshold: 0.02,
		Alternates:       []string{"dswrf", "ssrd", "DSWRF"},
	},
	{
		Name:             "downward_longwave_radiation_flux_gl",
		Description:      "Surface downward longwave radiation flux",
		Unit:             "W/m^2",
		Lower:            0,
		Upper:            800,
		OutlierThreshold: 0.02,
		Alternates:       []string{"dlwrf", "strd", "DLWRF"},
	},
	{
		Name:             "wind_u_component_10m",
		Description:      "10m U-component of wind",
		Unit:             "m/s",
		Lower:            -150,
		Upper:            150,
		OutlierThreshold: 0.01,
		Alternates:       []string{"u10", "UGRD", "u"},
	},
	{
		Name:             "wind_v_component_10m",
		Description:      "10m V-component of wind",
		Unit:             "m/s",
		Lower:            -150,
		Upper:            150,
		OutlierThreshold: 0.01,
		Alternates:       []string{"v10", "VGRD", "v"},
	},
	{
		Name:             "relative_humidity_sl",
		Description:      "Relative humidity at screen level",
		Unit:             "%",
		Lower:            0,
		Upper:            100,
		OutlierThreshold: 0.01,
		Alternates:       []string{"rh", "RH", "r2"},
	},
	{
		Name:             "cloud_cover_total",
		Description:      "Total cloud cover fraction",
		Unit:             "%",
		Lower:            0,
		Upper:            100,
		OutlierThreshold: 0.01,
		Alternates:       []string{"tcc", "TCDC", "clt"},
	},
	{
		Name:             "precipitation_rate_gl",
		Description:      "Surface precipitation rate",
		Unit:             "kg/m^2/s",
		Lower:            0,
		Upper:            0.05,
		OutlierThreshold: 0.02,
		Alternates:       []string{"prate", "PRATE"},
	},
	{
		Name:             "mean_sea_level_pressure",
		Description:      "Mean sea level pressure",
		Unit:             "Pa",
		Lower:            85000,
		Upper:            110000,
		OutlierThreshold: 0.01,
		Alternates:       []string{"msl", "MSLMA", "prmsl"},
	},
	{
		Name:             "visibility_sl",
		Description:      "Surface visibility",
		Unit:             "m",
		Lower:            0,
		Upper:            100000,
		OutlierThreshold: 0.02,
		Alternates:       []string{"vis", "VIS"},
	},
	{
		Name:             "snow_depth_gl",
		Description:      "Snow depth",
		Unit:             "m",
		Lower:            0,
		Upper:            30,
		OutlierThreshold: 0.02,
		Alternates:       []string{"sde", "SNOD"},
	},
	{
		Name:             "cape_sl",
		Description:      "Convective available potential energy",
		Unit:             "J/kg",
		Lower:            0,
		Upper:            8000,
		OutlierThreshold: 0.02,
		Alternates:       []string{"cape", "CAPE"},
	},
}
