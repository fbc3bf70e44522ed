// Package emoji maps semantic names to the custom Discord glyphs used in
// event messages.
package emoji

import "strings"

// Placeholder is returned for names with no known glyph.
const Placeholder = "❓"

var glyphs = []struct {
	name  string
	glyph string
}{
	{"Tank", "<:Tank:1361715148275978281>"},
	{"Healer", "<:Healer:1361714958634713200>"},
	{"DPS", "<:DPS:1361714957619564737>"},
	{"CampfireEvent", "<:Campfire:1361719739092828160>"},
	{"FashionShow", "<:FashionShow:1361719741852422174>"},
	{"Judge", "<:Judge:1361719743437996193>"},
	{"Speaker", "<:Speaker:1361719746659356892>"},
	{"Crowd", "<:Crowd:1361720304933539904>"},
	{"Model", "<:Model:1361720306678366370>"},
	{"Duration", "<:Duration:1361714964750143719>"},
	{"FinalFantasyXIV", "<:FF14:1361715995215138837>"},
	{"Event", "<:Event:1361722436982407218>"},
	{"Attending", "<:Attending:1361714961918853240>"},
	{"Organiser", "<:Organiser:1361714967279177748>"},
	{"People", "<:People:1361714963483197500>"},
	{"Start", "<:Start:1361714968822546583>"},
	{"Tentative", "<:Tentative:1361714954537013391>"},
	{"Late", "<:Late:1361723397637411036>"},
	{"Bench", "<:Bench:1361714956445286450>"},
	{"Allrounder", "<:Allrounder:1361714960648114347>"},
	{"Pictomancer", "<:Pictomancer:1264644682646814883>"},
	{"BlueMage", "<:BlueMage:1264644552975974551>"},
	{"Samurai", "<:Samurai:1264645159795298497>"},
	{"Reaper", "<:Reaper:1264645141373915220>"},
	{"Ninja", "<:Ninja:1264645180099657769>"},
	{"Monk", "<:Monk:1264645224160956492>"},
	{"Machinist", "<:Machinist:1264645265713926206>"},
	{"Dragoon", "<:Dragoon:1264645202195255296>"},
	{"Dancer", "<:Dancer:1264645244469772369>"},
	{"Summoner", "<:Summoner:1264645116279394416>"},
	{"RedMage", "<:RedMage:1264644745666236536>"},
	{"BlackMage", "<:BlackMage:1301689997300076606>"},
	{"Bard", "<:Bard:1264645295564783666>"},
	{"WhiteMage", "<:WhiteMage:1264644527935852635>"},
	{"Scholar", "<:Scholar:1264644505965953126>"},
	{"Sage", "<:Sage:1264644450542424085>"},
	{"Astrologian", "<:Astrologian:1264644473116426291>"},
	{"Warrior", "<:Warrior:1264644632541659219>"},
	{"Paladin", "<:Paladin:1264644652061954218>"},
	{"GunBreaker", "<:Gunbreaker:1264644584131268668>"},
	{"DarkKnight", "<:DarkKnight:1264644608688914585>"},
	{"Viper", "<:Viper:1264644722937561221>"},
}

// Resolve returns the glyph for a semantic name. Matching ignores case and
// spaces, so "Dark Knight" and "darkknight" resolve identically. Unknown
// names resolve to Placeholder; Resolve never fails.
func Resolve(name string) string {
	key := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for _, e := range glyphs {
		if strings.ToLower(e.name) == key {
			return e.glyph
		}
	}
	return Placeholder
}
