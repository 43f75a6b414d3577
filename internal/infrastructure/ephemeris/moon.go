package ephemeris

import "math"

// moonLongitude 月球地心黄经（当天平春分点），t 为 J2000 起算的儒略世纪数
func moonLongitude(t float64) float64 {
	t2, t3, t4 := t*t, t*t*t, t*t*t*t

	lp := 218.3164477 + 481267.88123421*t - 0.0015786*t2 + t3/538841 - t4/65194000
	d := 297.8501921 + 445267.1114034*t - 0.0018819*t2 + t3/545868 - t4/113065000
	m := 357.5291092 + 35999.0502909*t - 0.0001536*t2 + t3/24490000
	mp := 134.9633964 + 477198.8675055*t + 0.0087414*t2 + t3/69699 - t4/14712000
	f := 93.2720950 + 483202.0175233*t - 0.0036539*t2 - t3/3526000 + t4/863310000

	e := 1 - 0.002516*t - 0.0000074*t2
	a1 := 119.75 + 131.849*t
	a2 := 53.09 + 479264.290*t

	var sum float64
	for _, term := range lunarLongitudeTerms {
		arg := float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp + float64(term.f)*f
		amp := term.amp
		switch term.m {
		case 1, -1:
			amp *= e
		case 2, -2:
			amp *= e * e
		}
		sum += amp * math.Sin(normalize(arg)*deg2rad)
	}
	sum += 3958*math.Sin(normalize(a1)*deg2rad) +
		1962*math.Sin(normalize(lp-f)*deg2rad) +
		318*math.Sin(normalize(a2)*deg2rad)

	return normalize(lp + sum/1e6)
}
