package ephemeris

import "math"

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	// 一般岁差，度/儒略世纪
	precessionPerCentury = 1.3969713
)

type vec3 struct{ x, y, z float64 }

func (v vec3) sub(o vec3) vec3 {
	return vec3{v.x - o.x, v.y - o.y, v.z - o.z}
}

// heliocentric J2000 黄道坐标下的日心直角坐标 (AU)
func (el orbitalElements) heliocentric(t float64) vec3 {
	a := el.a + el.aDot*t
	e := el.e + el.eDot*t
	i := (el.i + el.iDot*t) * deg2rad
	l := el.l + el.lDot*t
	peri := el.peri + el.periDot*t
	node := el.node + el.nodeDot*t

	omega := (peri - node) * deg2rad
	m := normalizeSigned(l-peri) * deg2rad
	bigOmega := node * deg2rad

	ea := solveKepler(m, e)
	xp := a * (math.Cos(ea) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ea)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(bigOmega), math.Sin(bigOmega)
	ci, si := math.Cos(i), math.Sin(i)

	return vec3{
		x: (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp,
		y: (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp,
		z: (sw*si)*xp + (cw*si)*yp,
	}
}

// solveKepler 牛顿迭代解开普勒方程 M = E - e sin E (弧度)
func solveKepler(m, e float64) float64 {
	ea := m + e*math.Sin(m)
	for range 30 {
		delta := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return ea
}

// eclipticLongitude 直角坐标转黄经，并加岁差换算到当天春分点
func eclipticLongitude(v vec3, t float64) float64 {
	return normalize(math.Atan2(v.y, v.x)*rad2deg + precessionPerCentury*t)
}

func normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func normalizeSigned(deg float64) float64 {
	d := normalize(deg)
	if d > 180 {
		d -= 360
	}
	return d
}
