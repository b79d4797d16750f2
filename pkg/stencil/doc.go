// Package stencil renders OpenDocument text templates (ODT/OTT).
//
// Template tags are typed into a document with a word processor. The word
// processor is free to split a tag over several spans, escape its quotes or
// turn them into typographic quotes. stencil repairs those tags, hands the
// document to a template engine (pongo2 by default, gonja on request) and
// writes the rendered result back into a valid package.
//
// # Quick Start
//
//	tmpl, err := stencil.PrepareFile("invoice.odt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tmpl.Close()
//
//	output, err := tmpl.Render(stencil.TemplateData{
//	    "customer": map[string]interface{}{"name": "John Doe"},
//	    "items": []map[string]interface{}{
//	        {"product": "Widget", "price": 19.99},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, _ := os.Create("output.odt")
//	defer f.Close()
//	io.Copy(f, output)
//
// # Template Syntax
//
// The syntax is that of the selected engine. With pongo2:
//
//	{{ customer.name }}                         - Variable
//	{{ price|floatformat:2 }}                   - Filter
//	{% if paid %}...{% else %}...{% endif %}    - Conditional
//	{% for item in items %}...{% endfor %}      - Loop
//	{{ format_currency(total, "EUR", "de") }}   - Function
//
// A block statement that is alone in its paragraph moves to the enclosing
// paragraph, list item or table row, so a loop in a table row repeats the
// row. Missing values render as empty text unless StrictMode is set.
//
// Besides the engine's own filters, templates can call:
//
//	image(src [, mimetype])   - Replace the picture of the frame whose name is the tag
//	markdown(text)            - Insert Markdown as formatted text
//	html(text)                - Insert sanitized HTML as formatted text
//	replaceLink(url)          - Point the enclosing hyperlink at url
//	pad(n [, width])          - Zero padded number
//	format_number, format_currency, format_percent, format_date, default, coalesce, ...
//
// Tags can also be placed in hyperlink targets and in placeholder and
// input fields.
//
// # Architecture
//
//   - container: the ZIP package, its parts, media and manifest
//   - odf: the XML tree of a part and helpers to build ODF nodes
//   - render: tag location, merging and block relocation; entity and
//     whitespace codecs
//   - engine: adapters for pongo2 and gonja
//   - value: the undefined sentinel and path lookups on arbitrary data
//
// # Advanced Usage
//
// Custom Functions:
//
//	engine := stencil.NewWithOptions(stencil.WithEngine("jinja"))
//	engine.RegisterFunction("greet", stencil.NewSimpleFunction("greet", 1, 1,
//	    func(args ...interface{}) (interface{}, error) {
//	        return "Hello, " + stencil.FormatValue(args[0]) + "!", nil
//	    }))
//
// Batches:
//
//	docs, err := tmpl.RenderBatch(ctx, []stencil.TemplateData{a, b, c})
//
// # Error Handling
//
//   - MalformedTagError: a tag is opened and never closed (preparation)
//   - TemplateEvaluationError: the engine failed; Tag is the offending tag
//   - FunctionError: a template function failed; wrapped by TemplateEvaluationError
//   - DocumentError: the package could not be read, parsed or written
//
// A failed render never returns partial output.
//
// # Thread Safety
//
// PreparedTemplate is safe for concurrent use. Each render works on trees
// parsed afresh from the prepared sources. The Engine and its cache are
// also safe for concurrent use.
package stencil
