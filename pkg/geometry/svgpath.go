package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// number of line segments a bezier curve is flattened into
const CurveSteps = 16

var ErrEmptyPath = errors.New("path contains no drawable segments")

// SubPath is one flattened "M ..." run of a path
type SubPath struct {
	Points []Vec2
	Closed bool
}

type pathParser struct {
	s   string
	pos int
}

// ParsePath flattens SVG path data into sub paths.
// Supported commands: M L H V C S Q T A Z (absolute and relative).
//
//nolint:funlen,gocognit,gocyclo,cyclop // command dispatch
func ParsePath(d string) ([]SubPath, error) {
	p := &pathParser{s: d}
	var (
		ret        []SubPath
		cur        *SubPath
		pos, start Vec2
		lastCtrl   Vec2
		lastCmd    byte
	)
	moveTo := func(v Vec2) {
		if cur != nil && len(cur.Points) > 1 {
			ret = append(ret, *cur)
		}
		cur = &SubPath{Points: []Vec2{v}}
		pos, start = v, v
	}
	lineTo := func(v Vec2) {
		if cur == nil {
			moveTo(pos)
		}
		if cur.Closed {
			// drawing after Z continues from the subpath start in a new subpath
			closed := *cur
			ret = append(ret, closed)
			cur = &SubPath{Points: []Vec2{pos}}
		}
		cur.Points = append(cur.Points, v)
		pos = v
	}

	var cmd byte
	for {
		p.skipSep()
		if p.pos >= len(p.s) {
			break
		}
		if c := p.s[p.pos]; isCommand(c) {
			cmd = c
			p.pos++
		} else if cmd == 0 {
			return nil, fmt.Errorf("path must start with a command at %d", p.pos)
		} else if cmd == 'M' {
			cmd = 'L' // implicit lineto after moveto
		} else if cmd == 'm' {
			cmd = 'l'
		} else if cmd == 'Z' || cmd == 'z' {
			return nil, fmt.Errorf("unexpected number after closepath at %d", p.pos)
		}
		rel := cmd >= 'a'
		base := Vec2{}
		if rel {
			base = pos
		}
		switch cmd {
		case 'M', 'm':
			v, err := p.point()
			if err != nil {
				return nil, err
			}
			moveTo(base.Add(v))
		case 'L', 'l':
			v, err := p.point()
			if err != nil {
				return nil, err
			}
			lineTo(base.Add(v))
		case 'H', 'h':
			x, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				x += pos.X
			}
			lineTo(Vec2{x, pos.Y})
		case 'V', 'v':
			y, err := p.number()
			if err != nil {
				return nil, err
			}
			if rel {
				y += pos.Y
			}
			lineTo(Vec2{pos.X, y})
		case 'C', 'c', 'S', 's':
			var c1 Vec2
			if cmd == 'C' || cmd == 'c' {
				v, err := p.point()
				if err != nil {
					return nil, err
				}
				c1 = base.Add(v)
			} else {
				c1 = pos
				if isOneOf(lastCmd, "CcSs") {
					c1 = pos.Add(pos.Sub(lastCtrl))
				}
			}
			v2, err := p.point()
			if err != nil {
				return nil, err
			}
			v3, err := p.point()
			if err != nil {
				return nil, err
			}
			c2, end := base.Add(v2), base.Add(v3)
			from := pos
			for i := 1; i <= CurveSteps; i++ {
				lineTo(cubic(from, c1, c2, end, float64(i)/CurveSteps))
			}
			lastCtrl = c2
		case 'Q', 'q', 'T', 't':
			var c1 Vec2
			if cmd == 'Q' || cmd == 'q' {
				v, err := p.point()
				if err != nil {
					return nil, err
				}
				c1 = base.Add(v)
			} else {
				c1 = pos
				if isOneOf(lastCmd, "QqTt") {
					c1 = pos.Add(pos.Sub(lastCtrl))
				}
			}
			v2, err := p.point()
			if err != nil {
				return nil, err
			}
			end := base.Add(v2)
			from := pos
			for i := 1; i <= CurveSteps; i++ {
				lineTo(quadratic(from, c1, end, float64(i)/CurveSteps))
			}
			lastCtrl = c1
		case 'A', 'a':
			rx, err := p.number()
			if err != nil {
				return nil, err
			}
			ry, err := p.number()
			if err != nil {
				return nil, err
			}
			rot, err := p.number()
			if err != nil {
				return nil, err
			}
			large, err := p.flag()
			if err != nil {
				return nil, err
			}
			sweep, err := p.flag()
			if err != nil {
				return nil, err
			}
			v, err := p.point()
			if err != nil {
				return nil, err
			}
			for _, pt := range flattenArc(pos, base.Add(v), rx, ry, rot, large, sweep) {
				lineTo(pt)
			}
		case 'Z', 'z':
			if cur != nil && len(cur.Points) > 0 {
				if cur.Points[len(cur.Points)-1] != start {
					cur.Points = append(cur.Points, start)
				}
				cur.Closed = true
			}
			pos = start
		default:
			return nil, fmt.Errorf("unsupported path command %q", cmd)
		}
		lastCmd = cmd
	}
	if cur != nil && len(cur.Points) > 1 {
		ret = append(ret, *cur)
	}
	if len(ret) == 0 {
		return nil, ErrEmptyPath
	}
	return ret, nil
}

func isCommand(c byte) bool {
	return isOneOf(c, "MmLlHhVvCcSsQqTtAaZz")
}

func isOneOf(c byte, set string) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == c {
			return true
		}
	}
	return false
}

func (p *pathParser) skipSep() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', ',', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *pathParser) point() (Vec2, error) {
	x, err := p.number()
	if err != nil {
		return Vec2{}, err
	}
	y, err := p.number()
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{x, y}, nil
}

func (p *pathParser) flag() (bool, error) {
	p.skipSep()
	if p.pos >= len(p.s) {
		return false, fmt.Errorf("expected arc flag at end of path")
	}
	switch p.s[p.pos] {
	case '0':
		p.pos++
		return false, nil
	case '1':
		p.pos++
		return true, nil
	}
	return false, fmt.Errorf("invalid arc flag %q at %d", p.s[p.pos], p.pos)
}

// number scans a float, "1.5.5" yields 1.5 followed by .5
func (p *pathParser) number() (float64, error) {
	p.skipSep()
	start := p.pos
	if p.pos < len(p.s) && (p.s[p.pos] == '-' || p.s[p.pos] == '+') {
		p.pos++
	}
	digits, dot := 0, false
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c >= '0' && c <= '9' {
			digits++
			p.pos++
			continue
		}
		if c == '.' && !dot {
			dot = true
			p.pos++
			continue
		}
		break
	}
	if digits == 0 {
		p.pos = start
		return 0, fmt.Errorf("expected number at %d", start)
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		save := p.pos
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '-' || p.s[p.pos] == '+') {
			p.pos++
		}
		expDigits := 0
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
			expDigits++
		}
		if expDigits == 0 {
			p.pos = save
		}
	}
	return strconv.ParseFloat(p.s[start:p.pos], 64)
}

func cubic(p0, p1, p2, p3 Vec2, t float64) Vec2 {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Vec2{
		a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

func quadratic(p0, p1, p2 Vec2, t float64) Vec2 {
	u := 1 - t
	return Vec2{
		u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// flattenArc converts an endpoint parameterized elliptical arc (SVG 1.1 F.6.5)
// into points, excluding the start point.
//
//nolint:funlen // math
func flattenArc(from, to Vec2, rx, ry, rotDeg float64, large, sweep bool) []Vec2 {
	if from == to {
		return nil
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return []Vec2{to}
	}
	phi := rotDeg * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	dx, dy := (from.X-to.X)/2, (from.Y-to.Y)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	// scale up radii that are too small
	lambda := (x1p*x1p)/(rx*rx) + (y1p*y1p)/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx := cosPhi*cxp - sinPhi*cyp + (from.X+to.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (from.Y+to.Y)/2

	angle := func(ux, uy, vx, vy float64) float64 {
		a := math.Atan2(uy, ux)
		b := math.Atan2(vy, vx)
		return b - a
	}
	theta1 := angle(1, 0, (x1p-cxp)/rx, (y1p-cyp)/ry)
	delta := angle((x1p-cxp)/rx, (y1p-cyp)/ry, (-x1p-cxp)/rx, (-y1p-cyp)/ry)
	delta = math.Mod(delta, 2*math.Pi)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	steps := int(math.Ceil(math.Abs(delta) / (math.Pi / 18)))
	if steps < 4 {
		steps = 4
	}
	ret := make([]Vec2, 0, steps)
	for i := 1; i <= steps; i++ {
		t := theta1 + delta*float64(i)/float64(steps)
		ex, ey := rx*math.Cos(t), ry*math.Sin(t)
		ret = append(ret, Vec2{
			cosPhi*ex - sinPhi*ey + cx,
			sinPhi*ex + cosPhi*ey + cy,
		})
	}
	ret[len(ret)-1] = to
	return ret
}
