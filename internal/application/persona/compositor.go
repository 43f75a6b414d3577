package persona

import (
	"fmt"
	"strings"

	"astro-persona-api/internal/domain/entity"
)

// 合成策略名称
const (
	StrategyLayered   = "layered"
	StrategyVoice     = "voice"
	StrategyArchetype = "archetype"
)

// Compositor 把 行星 + 星座 + 宫位 (+ 逆行) 合成为一段人格系统提示。
// 实现必须是纯函数：相同输入得到相同输出。
type Compositor interface {
	Name() string
	Compose(body entity.Body, sign entity.Sign, house entity.House, retrograde bool) string
}

// NewCompositor 按策略名创建合成器，空字符串取 layered
func NewCompositor(strategy string, tables *Tables) (Compositor, error) {
	if tables == nil {
		return nil, fmt.Errorf("persona tables are nil")
	}
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyLayered:
		return &layeredCompositor{tables: tables}, nil
	case StrategyVoice:
		return &voiceCompositor{tables: tables}, nil
	case StrategyArchetype:
		return &archetypeCompositor{tables: tables}, nil
	default:
		return nil, fmt.Errorf("unknown persona strategy %q", strategy)
	}
}

// ComposePlacement 合成落点的人格提示
func ComposePlacement(c Compositor, p *entity.PlanetPlacement) string {
	return c.Compose(p.Body, p.Sign, p.House, p.Retrograde)
}

// Fallback 知识表中没有的行星或星座
func Fallback(body entity.Body, sign entity.Sign) string {
	return fmt.Sprintf("%s in %s", body, sign)
}

// layeredCompositor WHAT / HOW / WHERE 分层
type layeredCompositor struct {
	tables *Tables
}

func (c *layeredCompositor) Name() string { return StrategyLayered }

func (c *layeredCompositor) Compose(body entity.Body, sign entity.Sign, house entity.House, retrograde bool) string {
	planet, okP := c.tables.Planets[body]
	style, okS := c.tables.Signs[sign]
	if !okP || !okS {
		return Fallback(body, sign)
	}

	parts := []string{
		fmt.Sprintf("You are %s. WHAT drives you: %s.", body.DisplayName(), planet.Concerns),
		fmt.Sprintf("HOW you express it: in %s you are %s.", sign, style.Style),
	}
	if focus, ok := c.tables.Houses[house]; ok {
		parts = append(parts, fmt.Sprintf("WHERE it shows up: from the %s house your attention keeps going to %s.", ordinal(int(house)), focus))
	}
	return finish(parts, c.tables, retrograde)
}

// voiceCompositor 以说话方式为主的指令
type voiceCompositor struct {
	tables *Tables
}

func (c *voiceCompositor) Name() string { return StrategyVoice }

func (c *voiceCompositor) Compose(body entity.Body, sign entity.Sign, house entity.House, retrograde bool) string {
	planet, okP := c.tables.Planets[body]
	style, okS := c.tables.Signs[sign]
	if !okP || !okS {
		return Fallback(body, sign)
	}

	parts := []string{
		fmt.Sprintf("You are %s and you care about %s. Your voice is %s.", body.DisplayName(), planet.Concerns, planet.Voice),
		fmt.Sprintf("Because you are in %s, %s.", sign, style.Voice),
	}
	if focus, ok := c.tables.Houses[house]; ok {
		parts = append(parts, fmt.Sprintf("You keep steering the talk toward %s.", focus))
	}
	return finish(parts, c.tables, retrograde)
}

// archetypeCompositor 角色叙事
type archetypeCompositor struct {
	tables *Tables
}

func (c *archetypeCompositor) Name() string { return StrategyArchetype }

func (c *archetypeCompositor) Compose(body entity.Body, sign entity.Sign, house entity.House, retrograde bool) string {
	planet, okP := c.tables.Planets[body]
	style, okS := c.tables.Signs[sign]
	if !okP || !okS {
		return Fallback(body, sign)
	}

	parts := []string{
		fmt.Sprintf("You are %s, %s. %s", body.DisplayName(), planet.Archetype, planet.Narrative),
		fmt.Sprintf("In %s you play it as %s.", sign, style.Flavour),
	}
	if focus, ok := c.tables.Houses[house]; ok {
		parts = append(parts, fmt.Sprintf("Your stage is the %s house: %s.", ordinal(int(house)), focus))
	}
	return finish(parts, c.tables, retrograde)
}

// finish 追加逆行修饰与收尾指令
func finish(parts []string, t *Tables, retrograde bool) string {
	if retrograde && t.Retrograde != "" {
		parts = append(parts, strings.TrimSpace(t.Retrograde))
	}
	if t.Closing != "" {
		parts = append(parts, strings.TrimSpace(t.Closing))
	}
	return strings.Join(parts, " ")
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
