package ephemeris

import "astro-persona-api/internal/domain/entity"

// orbitalElements J2000 平均轨道根数及其每儒略世纪变化率
// a: 半长轴 (AU), e: 偏心率, i: 轨道倾角, l: 平黄经, peri: 近日点黄经, node: 升交点黄经 (度)
type orbitalElements struct {
	a, aDot       float64
	e, eDot       float64
	i, iDot       float64
	l, lDot       float64
	peri, periDot float64
	node, nodeDot float64
}

// 行星近似轨道根数，适用 1800-2050 年
var planetElements = map[entity.Body]orbitalElements{
	entity.BodyMercury: {
		0.38709927, 0.00000037,
		0.20563593, 0.00001906,
		7.00497902, -0.00594749,
		252.25032350, 149472.67411175,
		77.45779628, 0.16047689,
		48.33076593, -0.12534081,
	},
	entity.BodyVenus: {
		0.72333566, 0.00000390,
		0.00677672, -0.00004107,
		3.39467605, -0.00078890,
		181.97909950, 58517.81538729,
		131.60246718, 0.00268329,
		76.67984255, -0.27769418,
	},
	entity.BodyMars: {
		1.52371034, 0.00001847,
		0.09339410, 0.00007882,
		1.84969142, -0.00813131,
		-4.55343205, 19140.30268499,
		-23.94362959, 0.44441088,
		49.55953891, -0.29257343,
	},
	entity.BodyJupiter: {
		5.20288700, -0.00011607,
		0.04838624, -0.00013253,
		1.30439695, -0.00183714,
		34.39644051, 3034.74612775,
		14.72847983, 0.21252668,
		100.47390909, 0.20469106,
	},
	entity.BodySaturn: {
		9.53667594, -0.00125060,
		0.05386179, -0.00050991,
		2.48599187, 0.00193609,
		49.95424423, 1222.49362201,
		92.59887831, -0.41897216,
		113.66242448, -0.28867794,
	},
	entity.BodyUranus: {
		19.18916464, -0.00196176,
		0.04725744, -0.00004397,
		0.77263783, -0.00242939,
		313.23810451, 428.48202785,
		170.95427630, 0.40805281,
		74.01692503, 0.04240589,
	},
	entity.BodyNeptune: {
		30.06992276, 0.00026291,
		0.00859048, 0.00005105,
		1.77004347, 0.00035372,
		-55.12002969, 218.45945325,
		44.96476227, -0.32241464,
		131.78422574, -0.00508664,
	},
	entity.BodyPluto: {
		39.48211675, -0.00031596,
		0.24882730, 0.00005170,
		17.14001206, 0.00004818,
		238.92903833, 145.20780515,
		224.06891629, -0.04062942,
		110.30393684, -0.01183482,
	},
}

// 地月质心
var earthMoonBarycenter = orbitalElements{
	1.00000261, 0.00000562,
	0.01671123, -0.00004392,
	-0.00001531, -0.01294668,
	100.46457166, 35999.37244981,
	102.93768193, 0.32327364,
	0, 0,
}

// lunarTerm 月球黄经周期项: D, M, M', F 的系数与振幅 (1e-6 度)
type lunarTerm struct {
	d, m, mp, f int
	amp         float64
}

// 月球黄经主要周期项
var lunarLongitudeTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774},
	{2, 0, -1, 0, 1274027},
	{2, 0, 0, 0, 658314},
	{0, 0, 2, 0, 213618},
	{0, 1, 0, 0, -185116},
	{0, 0, 0, 2, -114332},
	{2, 0, -2, 0, 58793},
	{2, -1, -1, 0, 57066},
	{2, 0, 1, 0, 53322},
	{2, -1, 0, 0, 45758},
	{0, 1, -1, 0, -40923},
	{1, 0, 0, 0, -34720},
	{0, 1, 1, 0, -30383},
	{2, 0, 0, -2, 15327},
	{0, 0, 1, 2, -12528},
	{0, 0, 1, -2, 10980},
	{4, 0, -1, 0, 10675},
	{0, 0, 3, 0, 10034},
	{4, 0, -2, 0, 8548},
	{2, 1, -1, 0, -7888},
	{2, 1, 0, 0, -6766},
	{1, 0, -1, 0, -5163},
	{1, 1, 0, 0, 4987},
	{2, -1, 1, 0, 4036},
	{2, 0, 2, 0, 3994},
	{4, 0, 0, 0, 3861},
	{2, 0, -3, 0, 3665},
	{0, 1, -2, 0, -2689},
	{2, 0, -1, 2, -2602},
	{2, -1, -2, 0, 2390},
	{1, 0, 1, 0, -2348},
	{2, -2, 0, 0, 2236},
	{0, 1, 2, 0, -2120},
	{0, 2, 0, 0, -2069},
	{2, -2, -1, 0, 2048},
	{2, 0, 1, -2, -1773},
	{2, 0, 0, 2, -1595},
	{4, -1, -1, 0, 1215},
	{0, 0, 2, 2, -1110},
	{3, 0, -1, 0, -892},
	{2, 1, 1, 0, -810},
	{4, -1, -2, 0, 759},
	{0, 2, -1, 0, -713},
	{2, 2, -1, 0, -700},
	{2, 1, -2, 0, 691},
	{2, -1, 0, -2, 596},
	{4, 0, 1, 0, 549},
	{0, 0, 4, 0, 537},
	{4, -1, 0, 0, 520},
	{1, 0, -2, 0, -487},
	{2, 1, 0, -2, -399},
	{0, 0, 2, -2, -381},
	{1, 1, 1, 0, 351},
	{3, 0, -2, 0, -340},
	{4, 0, -3, 0, 330},
	{2, -1, 2, 0, 327},
	{0, 2, 1, 0, -323},
	{1, 1, -1, 0, 299},
	{2, 0, 3, 0, 294},
}
