package usage

// Sample consumption in kWh per sector.

var hourly = Dataset{
	TimeFrame: TimeFrameHourly,
	XKey:      "time",
	Points: []Point{
		{Label: "00:00", Residential: 220, Commercial: 180, Industrial: 320, StreetLights: 90},
		{Label: "01:00", Residential: 190, Commercial: 170, Industrial: 310, StreetLights: 90},
		{Label: "02:00", Residential: 180, Commercial: 160, Industrial: 300, StreetLights: 90},
		{Label: "03:00", Residential: 170, Commercial: 155, Industrial: 290, StreetLights: 90},
		{Label: "04:00", Residential: 190, Commercial: 160, Industrial: 300, StreetLights: 90},
		{Label: "05:00", Residential: 220, Commercial: 170, Industrial: 310, StreetLights: 85},
		{Label: "06:00", Residential: 270, Commercial: 190, Industrial: 330, StreetLights: 80},
		{Label: "07:00", Residential: 350, Commercial: 240, Industrial: 360, StreetLights: 70},
		{Label: "08:00", Residential: 400, Commercial: 350, Industrial: 410, StreetLights: 60},
		{Label: "09:00", Residential: 420, Commercial: 430, Industrial: 450, StreetLights: 50},
		{Label: "10:00", Residential: 420, Commercial: 470, Industrial: 470, StreetLights: 50},
		{Label: "11:00", Residential: 410, Commercial: 480, Industrial: 480, StreetLights: 50},
		{Label: "12:00", Residential: 400, Commercial: 490, Industrial: 480, StreetLights: 50},
		{Label: "13:00", Residential: 410, Commercial: 490, Industrial: 490, StreetLights: 50},
		{Label: "14:00", Residential: 420, Commercial: 480, Industrial: 490, StreetLights: 50},
		{Label: "15:00", Residential: 440, Commercial: 470, Industrial: 480, StreetLights: 50},
		{Label: "16:00", Residential: 450, Commercial: 460, Industrial: 470, StreetLights: 50},
		{Label: "17:00", Residential: 470, Commercial: 440, Industrial: 450, StreetLights: 55},
		{Label: "18:00", Residential: 490, Commercial: 410, Industrial: 430, StreetLights: 70},
		{Label: "19:00", Residential: 510, Commercial: 380, Industrial: 410, StreetLights: 85},
		{Label: "20:00", Residential: 520, Commercial: 330, Industrial: 390, StreetLights: 90},
		{Label: "21:00", Residential: 500, Commercial: 290, Industrial: 370, StreetLights: 90},
		{Label: "22:00", Residential: 450, Commercial: 240, Industrial: 350, StreetLights: 90},
		{Label: "23:00", Residential: 350, Commercial: 200, Industrial: 330, StreetLights: 90},
	},
}

var daily = Dataset{
	TimeFrame: TimeFrameDaily,
	XKey:      "date",
	Points: []Point{
		{Label: "Mon", Residential: 8500, Commercial: 7200, Industrial: 9800, StreetLights: 1800},
		{Label: "Tue", Residential: 8700, Commercial: 7400, Industrial: 9900, StreetLights: 1800},
		{Label: "Wed", Residential: 9000, Commercial: 7600, Industrial: 10100, StreetLights: 1800},
		{Label: "Thu", Residential: 8900, Commercial: 7500, Industrial: 10000, StreetLights: 1800},
		{Label: "Fri", Residential: 9100, Commercial: 7700, Industrial: 10200, StreetLights: 1800},
		{Label: "Sat", Residential: 7900, Commercial: 5500, Industrial: 8600, StreetLights: 1800},
		{Label: "Sun", Residential: 7500, Commercial: 5100, Industrial: 8200, StreetLights: 1800},
	},
}

var monthly = Dataset{
	TimeFrame: TimeFrameMonthly,
	XKey:      "month",
	Points: []Point{
		{Label: "Jan", Residential: 260000, Commercial: 220000, Industrial: 310000, StreetLights: 55000},
		{Label: "Feb", Residential: 240000, Commercial: 210000, Industrial: 305000, StreetLights: 50000},
		{Label: "Mar", Residential: 255000, Commercial: 215000, Industrial: 308000, StreetLights: 52000},
		{Label: "Apr", Residential: 265000, Commercial: 225000, Industrial: 315000, StreetLights: 54000},
		{Label: "May", Residential: 270000, Commercial: 230000, Industrial: 320000, StreetLights: 56000},
		{Label: "Jun", Residential: 290000, Commercial: 245000, Industrial: 335000, StreetLights: 58000},
		{Label: "Jul", Residential: 310000, Commercial: 260000, Industrial: 350000, StreetLights: 60000},
		{Label: "Aug", Residential: 305000, Commercial: 255000, Industrial: 345000, StreetLights: 59000},
		{Label: "Sep", Residential: 285000, Commercial: 240000, Industrial: 330000, StreetLights: 57000},
		{Label: "Oct", Residential: 275000, Commercial: 235000, Industrial: 325000, StreetLights: 56000},
		{Label: "Nov", Residential: 265000, Commercial: 225000, Industrial: 315000, StreetLights: 54000},
		{Label: "Dec", Residential: 280000, Commercial: 240000, Industrial: 330000, StreetLights: 57000},
	},
}
