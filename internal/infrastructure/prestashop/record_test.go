package prestashop

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerXML = `<?xml version="1.0" encoding="UTF-8"?>
<prestashop xmlns:xlink="http://www.w3.org/1999/xlink">
<customer>
	<id><![CDATA[12]]></id>
	<id_default_group xlink:href="http://shop/api/groups/3"><![CDATA[3]]></id_default_group>
	<id_lang xlink:href="http://shop/api/languages/1"><![CDATA[1]]></id_lang>
	<firstname><![CDATA[ John ]]></firstname>
	<lastname><![CDATA[Doe]]></lastname>
	<birthday><![CDATA[0000-00-00]]></birthday>
	<newsletter><![CDATA[1]]></newsletter>
	<note></note>
	<associations>
		<groups nodeType="group" api="groups">
			<group xlink:href="http://shop/api/groups/3"><id><![CDATA[3]]></id></group>
			<group xlink:href="http://shop/api/groups/4"><id><![CDATA[4]]></id></group>
		</groups>
	</associations>
</customer>
</prestashop>`

const productXML = `<?xml version="1.0" encoding="UTF-8"?>
<prestashop xmlns:xlink="http://www.w3.org/1999/xlink">
<product>
	<id><![CDATA[7]]></id>
	<price><![CDATA[19.900000]]></price>
	<name>
		<language id="1" xlink:href="http://shop/api/languages/1"><![CDATA[Shirt]]></language>
		<language id="2" xlink:href="http://shop/api/languages/2"><![CDATA[Chemise]]></language>
	</name>
	<link_rewrite><language id="1"><![CDATA[shirt]]></language></link_rewrite>
	<associations>
		<categories nodeType="category" api="categories">
			<category><id><![CDATA[2]]></id></category>
		</categories>
		<images nodeType="image" api="images"/>
	</associations>
</product>
</prestashop>`

func TestDecode(t *testing.T) {
	name, record, err := Decode([]byte(customerXML))
	require.NoError(t, err)
	assert.Equal(t, "customer", name)

	t.Run("leaf values", func(t *testing.T) {
		assert.Equal(t, int64(12), record.ID())
		assert.Equal(t, "John", record.String("firstname"))
		assert.Equal(t, int64(3), record.Int64("id_default_group"))
		assert.Equal(t, "", record.String("note"))
		assert.True(t, record.Bool("newsletter"))
		assert.False(t, record.Bool("missing"))
		assert.Equal(t, int64(0), record.Int64("firstname"))
	})

	t.Run("href attributes are dropped", func(t *testing.T) {
		_, isString := record["id_default_group"].(string)
		assert.True(t, isString)
	})

	t.Run("repeated children become a list", func(t *testing.T) {
		groups := record.Child("associations").Child("groups")
		assert.Equal(t, "group", groups.Attrs().String("nodeType"))
		list := groups.List("group")
		require.Len(t, list, 2)
		assert.Equal(t, int64(4), list[1].ID())
	})
}

func TestRecord_Languages(t *testing.T) {
	_, record, err := Decode([]byte(productXML))
	require.NoError(t, err)

	assert.True(t, record.IsTranslatable("name"))
	assert.False(t, record.IsTranslatable("price"))
	assert.Equal(t, []LangValue{{LangID: 1, Value: "Shirt"}, {LangID: 2, Value: "Chemise"}}, record.Languages("name"))
	assert.Equal(t, []LangValue{{LangID: 1, Value: "shirt"}}, record.Languages("link_rewrite"))
	assert.Nil(t, record.Languages("price"))
	assert.True(t, decimal.RequireFromString("19.9").Equal(record.Decimal("price")))

	t.Run("single entry normalized to list", func(t *testing.T) {
		categories := record.Child("associations").Child("categories").List("category")
		require.Len(t, categories, 1)
		assert.Equal(t, int64(2), categories[0].ID())
	})

	t.Run("empty association", func(t *testing.T) {
		assert.Empty(t, record.Child("associations").Child("images").List("image"))
	})
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode([]byte(`<prestashop></prestashop>`))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, _, err = Decode([]byte(`<prestashop><customer><id>1</customer>`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	payload, err := Encode("stock_available", Record{
		"quantity":   "5",
		"id":         "3",
		"id_product": "9",
		"name": Record{"language": []any{
			Record{AttrsKey: Record{"id": "1"}, ValueKey: "Shirt"},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `<stock_available><id>3</id><id_product>9</id_product><name><language id="1">Shirt</language></name><quantity>5</quantity></stock_available>`)

	name, decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "stock_available", name)
	assert.Equal(t, int64(5), decoded.Int64("quantity"))
	assert.Equal(t, []LangValue{{LangID: 1, Value: "Shirt"}}, decoded.Languages("name"))
}

func TestEncode_EscapesText(t *testing.T) {
	payload, err := Encode("manufacturer", Record{
		"id":   "4",
		"name": "Smith & Sons <Ltd>",
		"link": Record{AttrsKey: Record{"rel": `a"b`}, ValueKey: "x"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `<name>Smith &amp; Sons &lt;Ltd&gt;</name>`)
	assert.Contains(t, string(payload), `<prestashop xmlns:xlink="http://www.w3.org/1999/xlink">`)

	_, decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "Smith & Sons <Ltd>", decoded.String("name"))
	assert.Equal(t, `a"b`, decoded.Child("link").Attrs().String("rel"))
	assert.Equal(t, "x", decoded.String("link"))
}
