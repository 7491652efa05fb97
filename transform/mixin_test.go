package transform

import (
	"testing"

	"github.com/chazu/procss/compiler"
)

func TestApplyMixin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"simple",
			`@mixin test { color: green; opacity: 0; }
			 div.open { color: red; @include test; }`,
			"div.open{color:red;}div.open{color:green;opacity:0;}",
		},
		{
			"declared after use",
			`div { @include late; } @mixin late { color: blue; }`,
			"div{color:blue;}",
		},
		{
			"transitive stays in separate groups",
			`@mixin test { color: green; }
			 @mixin test2 { @include test; opacity: 0; }
			 div.open { color: red; @include test2; }`,
			"div.open{color:red;}div.open{color:green;}div.open{opacity:0;}",
		},
		{
			"nested rulesets in mixin",
			`@mixin m { a { color: red; } }
			 nav { @include m; }`,
			"nav a{color:red;}",
		},
		{
			"unknown include left",
			`div { @include nope; color: red; }`,
			"@include nope;div{color:red;}",
		},
		{
			"self recursion guarded",
			`@mixin loop { color: red; @include loop; }
			 div { @include loop; }`,
			"div{color:red;}@include loop;",
		},
		{
			"include in at-rule body",
			`@mixin m { color: red; }
			 div { @media print { @include m; } }`,
			"@media print{div{color:red;}}",
		},
		{
			"top-level include left",
			`@mixin m { color: red; } @include m;`,
			"@include m;",
		},
		{
			"each include gets its own copy",
			`@mixin m { color: red; }
			 a { @include m; } b { @include m; }`,
			"a{color:red;}b{color:red;}",
		},
	}

	for _, tc := range tests {
		tree, err := compiler.Parse(tc.input)
		if err != nil {
			t.Errorf("%s: Parse: %v", tc.name, err)
			continue
		}
		ApplyMixin(&tree)
		if got := tree.Flatten().String(); got != tc.want {
			t.Errorf("%s:\n got: %s\nwant: %s", tc.name, got, tc.want)
		}
	}
}

func TestMixinsCollectsByName(t *testing.T) {
	tree := compiler.MustParse(`@mixin a { x: 1; } @mixin b { y: 2; } @media print { @mixin c { z: 3; } }`)
	mixins := Mixins(tree)
	for _, name := range []string{"a", "b", "c"} {
		if _, ok := mixins[name]; !ok {
			t.Errorf("mixin %q not collected", name)
		}
	}
	ApplyMixin(&tree)
	if got := tree.String(); got != "@media print{}" {
		t.Errorf("declarations not removed: %q", got)
	}
}

// A theme stylesheet that composes mixins several levels deep, declares them
// after use, and relies on Dedupe to fold the expanded groups back together.
const themeSource = `
div[theme="custom"] {
    @include div-theme;
}

perspective-copy-menu[theme="custom"],
.perspective-modal-theme {
    @include perspective-modal-theme;
}

@mixin div-theme {
    @include div-theme--dimensions;
    @include div-theme--colors;
    @include div-theme--fonts;
    @include div-theme--intl;
    @include div-theme--chart;
    @include div-theme--datagrid;
    @include div-theme--openlayers;
}

@mixin perspective-modal-theme {
    @include div-theme--fonts;
    @include div-theme--colors;
    background-color: white;
    --column-style-pos-color--content: "add";
}

@mixin div-theme--dimensions {
    --button--font-size: 16px;--config-button--padding: 15px 8px 6px 8px;
    // Comment comment comment
}

@mixin div-theme--colors {
    color: #161616;
    background-color: #f2f4f6;
}

@mixin div-theme--fonts {
    font-family: "Open Sans";
    --interface-monospace--font-family: "Roboto Mono";
    --button--font-family: "theme Icons";
}

@mixin div-theme--intl {
    // Query overlay labels
    --group_by--content: "Group By";
    --split_by--content: "Split By";

    // Icons
    --inactive-column-selector--content: "\E835";
    --active-column-selector--content: "\E834";
}

@mixin div-theme--chart {
    --chart-y1-label--content: "arrow_upward";
    --chart-y2-label--content: "arrow_downward";
    --chart-full--gradient: linear-gradient(#4d342f 0%,
            #e4521b 22.5%,
            #feeb65 42.5%,
            #f0f0f0 50%,
            #dcedc8 57.5%,
            #42b3d5 67.5%,
            #1a237e 100%);
    --chart-positive--gradient: linear-gradient(#f0f0f0 0%,
            #dcedc8 10%,
            #42b3d5 50%,
            #1a237e 100%);
    --chart-negative--gradient: linear-gradient(#4d342f 0%,
            #e4521b 50%,
            #feeb65 90%,
            #f0f0f0 100%);
}

@mixin div-theme--openlayers {
    --map-tile-url: "http://{a-c}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png";
}

@mixin div-theme--datagrid {
    --column-style-open-button--content: "menu";
    --column-style-close-button--content: "expand_less";

    table::-webkit-scrollbar-thumb {
        background-color: transparent;
    }

    table:hover::-webkit-scrollbar-thumb {
        background-color: #e0e4e9;
    }
}`

const themeWant = `div[theme="custom"]{` +
	`--button--font-size:16px;--config-button--padding:15px 8px 6px 8px;` +
	`color:#161616;background-color:#f2f4f6;` +
	`font-family:"Open Sans";--interface-monospace--font-family:"Roboto Mono";--button--font-family:"theme Icons";` +
	`--group_by--content:"Group By";--split_by--content:"Split By";` +
	`--inactive-column-selector--content:"\E835";--active-column-selector--content:"\E834";` +
	`--chart-y1-label--content:"arrow_upward";--chart-y2-label--content:"arrow_downward";` +
	`--chart-full--gradient:linear-gradient(#4d342f 0%, #e4521b 22.5%, #feeb65 42.5%, #f0f0f0 50%, #dcedc8 57.5%, #42b3d5 67.5%, #1a237e 100%);` +
	`--chart-positive--gradient:linear-gradient(#f0f0f0 0%, #dcedc8 10%, #42b3d5 50%, #1a237e 100%);` +
	`--chart-negative--gradient:linear-gradient(#4d342f 0%, #e4521b 50%, #feeb65 90%, #f0f0f0 100%);` +
	`--column-style-open-button--content:"menu";--column-style-close-button--content:"expand_less";}` +
	`div[theme="custom"] table::-webkit-scrollbar-thumb{background-color:transparent;}` +
	`div[theme="custom"] table:hover::-webkit-scrollbar-thumb{background-color:#e0e4e9;}` +
	`div[theme="custom"]{--map-tile-url:"http://{a-c}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png";}` +
	`perspective-copy-menu[theme="custom"],.perspective-modal-theme{` +
	`font-family:"Open Sans";--interface-monospace--font-family:"Roboto Mono";--button--font-family:"theme Icons";` +
	`color:#161616;background-color:#f2f4f6;background-color:white;--column-style-pos-color--content:"add";}`

func TestMixinThenDedupe(t *testing.T) {
	tree, err := compiler.Parse(themeSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ApplyMixin(&tree)
	css := tree.Flatten()
	Dedupe(&css)

	if got := css.String(); got != themeWant {
		t.Errorf("got:\n%s\nwant:\n%s", got, themeWant)
	}
}
