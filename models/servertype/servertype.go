// Package servertype is the closed ServerType enum and its static
// metadata table (C7). Grounded directly on
// original_source/backend/src/models/type.rs.
package servertype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcjars/registry/cache"
)

// Type is the closed 27-variant server-type enum. Stored and compared as
// its uppercase wire string (ServerType::as_str in the Rust source),
// never as an ordinal, so adding a variant never renumbers existing data.
type Type string

const (
	Vanilla      Type = "VANILLA"
	Paper        Type = "PAPER"
	Pufferfish   Type = "PUFFERFISH"
	Spigot       Type = "SPIGOT"
	Folia        Type = "FOLIA"
	Purpur       Type = "PURPUR"
	Waterfall    Type = "WATERFALL"
	Velocity     Type = "VELOCITY"
	Fabric       Type = "FABRIC"
	Bungeecord   Type = "BUNGEECORD"
	Quilt        Type = "QUILT"
	Forge        Type = "FORGE"
	Neoforge     Type = "NEOFORGE"
	Mohist       Type = "MOHIST"
	Arclight     Type = "ARCLIGHT"
	Sponge       Type = "SPONGE"
	Leaves       Type = "LEAVES"
	Canvas       Type = "CANVAS"
	Aspaper      Type = "ASPAPER"
	LegacyFabric Type = "LEGACYFABRIC"
	LoohpLimbo   Type = "LOOHPLIMBO"
	Nanolimbo    Type = "NANOLIMBO"
	Divinemc     Type = "DIVINEMC"
	Magma        Type = "MAGMA"
	Leaf         Type = "LEAF"
	VelocityCtd  Type = "VELOCITY_CTD"
	Youer        Type = "YOUER"
)

// All lists every known variant, in the order the Rust source declares
// them.
var All = []Type{
	Vanilla, Paper, Pufferfish, Spigot, Folia, Purpur, Waterfall, Velocity,
	Fabric, Bungeecord, Quilt, Forge, Neoforge, Mohist, Arclight, Sponge,
	Leaves, Canvas, Aspaper, LegacyFabric, LoohpLimbo, Nanolimbo, Divinemc,
	Magma, Leaf, VelocityCtd, Youer,
}

// WithProjectAsIdentifier mirrors SERVER_TYPES_WITH_PROJECT_AS_IDENTIFIER:
// families whose "version" is really a proxy/project release, not tied
// to a Minecraft version.
var WithProjectAsIdentifier = map[Type]bool{
	Velocity:    true,
	Nanolimbo:   true,
	VelocityCtd: true,
}

// V1 mirrors V1_TYPES: families supported by the legacy v1 API surface.
var V1 = map[Type]bool{
	Vanilla: true, Paper: true, Pufferfish: true, Spigot: true, Folia: true,
	Purpur: true, Waterfall: true, Velocity: true, Fabric: true,
	Bungeecord: true, Quilt: true, Forge: true, Neoforge: true,
	Mohist: true, Arclight: true, Sponge: true, Leaves: true, Canvas: true,
}

var aliases = map[string]Type{
	"LEGACY-FABRIC": LegacyFabric, "LEGACY_FABRIC": LegacyFabric,
	"LOOHP-LIMBO": LoohpLimbo, "LOOHP_LIMBO": LoohpLimbo,
	"NANO_LIMBO": Nanolimbo,
	"DIVINE_MC":  Divinemc,
	"VELOCITY-CTD": VelocityCtd, "VELOCITYCTD": VelocityCtd,
}

var known = func() map[string]Type {
	m := make(map[string]Type, len(All))
	for _, t := range All {
		m[string(t)] = t
	}
	return m
}()

// Parse maps free-form user input onto a Type, matching
// ServerType::from_str's case/separator-insensitive lookup.
func Parse(s string) (Type, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(s, " ", "_"))

	if t, ok := known[normalized]; ok {
		return t, nil
	}
	if t, ok := aliases[normalized]; ok {
		return t, nil
	}

	return "", fmt.Errorf("unknown server type: %q", s)
}

// Info is the static, per-family metadata the registry's listing
// endpoints surface, matching ServerTypeInfo plus its rollup counters.
type Info struct {
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Homepage    string   `json:"homepage"`
	Deprecated  bool     `json:"deprecated"`
	Experimental bool    `json:"experimental"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Compatibility []string `json:"compatibility"`

	Builds   int64    `json:"builds"`
	Versions Versions `json:"versions"`
}

// Versions is the per-family build-count rollup, matching
// ServerTypeVersions.
type Versions struct {
	Minecraft int64 `json:"minecraft"`
	Project   int64 `json:"project"`
}

// staticInfo holds every variant's hand-authored metadata (name, icon,
// homepage, category tags), independent of anything computed from the
// database.
var staticInfo = map[Type]Info{
	Vanilla:      {Name: "Vanilla", Icon: "vanilla.png", Color: "#4ca456", Homepage: "https://minecraft.net", Categories: []string{"vanilla"}, Compatibility: []string{"vanilla"}, Description: "Official unmodified Minecraft server."},
	Paper:        {Name: "Paper", Icon: "paper.png", Color: "#4e677d", Homepage: "https://papermc.io", Categories: []string{"plugins"}, Compatibility: []string{"spigot", "bukkit"}, Description: "High performance fork of Spigot."},
	Pufferfish:   {Name: "Pufferfish", Icon: "pufferfish.png", Color: "#2196f3", Homepage: "https://pufferfish.host", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Description: "Performance-focused Paper fork."},
	Spigot:       {Name: "Spigot", Icon: "spigot.png", Color: "#ffc107", Homepage: "https://www.spigotmc.org", Categories: []string{"plugins"}, Compatibility: []string{"bukkit"}, Description: "CraftBukkit fork with additional performance tweaks."},
	Folia:        {Name: "Folia", Icon: "folia.png", Color: "#673ab7", Homepage: "https://papermc.io/software/folia", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "Regionized multithreaded Paper fork."},
	Purpur:       {Name: "Purpur", Icon: "purpur.png", Color: "#9c27b0", Homepage: "https://purpurmc.org", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Description: "Paper fork with extra gameplay features."},
	Waterfall:    {Name: "Waterfall", Icon: "waterfall.png", Color: "#03a9f4", Homepage: "https://papermc.io/software/waterfall", Categories: []string{"proxy"}, Compatibility: []string{"bungeecord"}, Deprecated: true, Description: "BungeeCord fork, superseded by Velocity."},
	Velocity:     {Name: "Velocity", Icon: "velocity.png", Color: "#1abc9c", Homepage: "https://papermc.io/software/velocity", Categories: []string{"proxy"}, Description: "Modern, high performance proxy."},
	Fabric:       {Name: "Fabric", Icon: "fabric.png", Color: "#dfa75f", Homepage: "https://fabricmc.net", Categories: []string{"modded"}, Description: "Lightweight modding toolchain."},
	Bungeecord:   {Name: "BungeeCord", Icon: "bungeecord.png", Color: "#ffeb3b", Homepage: "https://www.spigotmc.org/wiki/bungeecord", Categories: []string{"proxy"}, Deprecated: true, Description: "Original Minecraft proxy software."},
	Quilt:        {Name: "Quilt", Icon: "quilt.png", Color: "#7e5aff", Homepage: "https://quiltmc.org", Categories: []string{"modded"}, Description: "Community-driven fork of Fabric."},
	Forge:        {Name: "Forge", Icon: "forge.png", Color: "#606b6e", Homepage: "https://files.minecraftforge.net", Categories: []string{"modded"}, Description: "Widely used mod loader."},
	Neoforge:     {Name: "NeoForge", Icon: "neoforge.png", Color: "#d7882d", Homepage: "https://neoforged.net", Categories: []string{"modded"}, Description: "Community-led continuation of Forge."},
	Mohist:       {Name: "Mohist", Icon: "mohist.png", Color: "#e91e63", Homepage: "https://mohistmc.com", Categories: []string{"plugins", "modded"}, Experimental: true, Description: "Hybrid server running both Forge mods and Bukkit plugins."},
	Arclight:     {Name: "Arclight", Icon: "arclight.png", Color: "#ff5722", Homepage: "https://github.com/IzzelAliz/Arclight", Categories: []string{"plugins", "modded"}, Experimental: true, Description: "Hybrid server bridging Forge/NeoForge and Bukkit."},
	Sponge:       {Name: "Sponge", Icon: "sponge.png", Color: "#f9b024", Homepage: "https://spongepowered.org", Categories: []string{"plugins"}, Description: "Plugin platform built on Forge/Vanilla."},
	Leaves:       {Name: "Leaves", Icon: "leaves.png", Color: "#3f8f3f", Homepage: "https://leavesmc.org", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Description: "Paper fork focused on additional gameplay features."},
	Canvas:       {Name: "Canvas", Icon: "canvas.png", Color: "#00bcd4", Homepage: "https://github.com/CanvasMC/Canvas", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "Paper fork with threaded chunk generation."},
	Aspaper:      {Name: "ASPaper", Icon: "aspaper.png", Color: "#795548", Homepage: "https://github.com/Bloom-host/ASPaper", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "AllayMC's Paper-compatible fork."},
	LegacyFabric: {Name: "Legacy Fabric", Icon: "legacyfabric.png", Color: "#c99a50", Homepage: "https://legacyfabric.net", Categories: []string{"modded"}, Description: "Fabric toolchain backported to older Minecraft versions."},
	LoohpLimbo:   {Name: "LOOHP Limbo", Icon: "loohplimbo.png", Color: "#9e9e9e", Homepage: "https://github.com/LOOHP/Limbo", Categories: []string{"limbo"}, Experimental: true, Description: "Standalone limbo/lobby server implementation."},
	Nanolimbo:    {Name: "NanoLimbo", Icon: "nanolimbo.png", Color: "#8bc34a", Homepage: "https://github.com/Nan1t/NanoLimbo", Categories: []string{"limbo"}, Experimental: true, Description: "Lightweight standalone limbo server."},
	Divinemc:     {Name: "DivineMC", Icon: "divinemc.png", Color: "#6a1b9a", Homepage: "https://github.com/Divine-Origin/DivineMC", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "Performance-oriented Paper fork."},
	Magma:        {Name: "Magma", Icon: "magma.png", Color: "#ff7043", Homepage: "https://magmafoundation.org", Categories: []string{"plugins", "modded"}, Experimental: true, Description: "Forge/Bukkit hybrid server."},
	Leaf:         {Name: "Leaf", Icon: "leaf.png", Color: "#43a047", Homepage: "https://leafmc.one", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "Performance-oriented Paper fork."},
	VelocityCtd:  {Name: "Velocity CTD", Icon: "velocityctd.png", Color: "#00897b", Homepage: "https://github.com/GemstoneGG/Velocity-CTD", Categories: []string{"proxy"}, Experimental: true, Description: "Velocity fork with community-requested features."},
	Youer:        {Name: "Youer", Icon: "youer.png", Color: "#5c6bc0", Homepage: "https://github.com/YouerFeng/Youer", Categories: []string{"plugins"}, Compatibility: []string{"paper"}, Experimental: true, Description: "Paper-compatible server fork."},
}

// Infos returns the static metadata for t. Per-family build rollups come
// from the cache-backed AllWithStats function below.
func Infos(t Type) Info {
	return staticInfo[t]
}

// AllWithStats returns the metadata, enriched with the builds/versions
// rollup computed from the builds table, of every variant that has at
// least one build; variants with no builds are absent from the map.
// Cached 30 minutes the way ServerType::all memoizes it in cache.rs.
func AllWithStats(ctx context.Context, pool *pgxpool.Pool, c *cache.Client) (map[Type]Info, error) {
	return cache.Cached(ctx, c, "types::all", 30*time.Minute, func(ctx context.Context) (map[Type]Info, error) {
		rows, err := pool.Query(ctx, `
			SELECT
				type,
				COUNT(*) AS builds,
				COUNT(DISTINCT version_id) AS versions_minecraft,
				COUNT(DISTINCT project_version_id) AS versions_project
			FROM builds
			GROUP BY type
		`)
		if err != nil {
			return nil, fmt.Errorf("query server type stats: %w", err)
		}
		defer rows.Close()

		out := make(map[Type]Info, len(All))
		for rows.Next() {
			var raw string
			var builds, versionsMinecraft, versionsProject int64
			if err := rows.Scan(&raw, &builds, &versionsMinecraft, &versionsProject); err != nil {
				return nil, fmt.Errorf("scan server type stats: %w", err)
			}

			t, err := Parse(raw)
			if err != nil {
				continue
			}

			info := staticInfo[t]
			info.Builds = builds
			info.Versions = Versions{Minecraft: versionsMinecraft, Project: versionsProject}
			out[t] = info
		}

		return out, rows.Err()
	})
}
