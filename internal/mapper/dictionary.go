package mapper

import (
	"invoice-audit-service/internal/models"
	"invoice-audit-service/internal/normalize"
)

// synonymDictionary maps each canonical field to its known textual variants,
// including deliberately preserved OCR misreadings observed in production
// scans. The table is immutable and loaded once per engine; matching compares
// against the normalized form of every entry.
var synonymDictionary = map[models.CanonicalField][]string{
	models.FieldInvoiceNo: {
		"發票號碼", "字軌號", "統一發票號碼", "發票字軌",
		"發票編號", "票號", "單號", "憑證號碼",
		"發票號", "票據號碼", "發票字號",
		// OCR misreadings
		"發要號碼", "發標號碼", "字執號", "字軌虎",
	},
	models.FieldDate: {
		"日期", "開立日期", "發票日期", "開票日期",
		"年月日", "民國日期", "西元日期", "銷售日期",
		"交易日期", "製單日期", "開具日期",
		// OCR misreadings
		"曰期", "日朗", "開乙日期",
	},
	models.FieldTaxID: {
		"統編", "買方統編", "統一編號", "買受人統編",
		"營利事業統一編號", "公司統編", "稅籍編號",
		"買方統一編號", "買受人統一編號", "稅號",
		// OCR misreadings
		"統緝", "統蝙", "買方鈕編", "統一編虎",
	},
	models.FieldSeller: {
		"賣方", "賣方名稱", "銷售者", "開立人",
		"賣方公司", "供應商", "廠商名稱", "銷貨方",
		"賣家", "商家名稱", "營業人名稱",
		// OCR misreadings
		"賈方", "貝方", "買方名稻",
	},
	models.FieldBuyer: {
		"買方", "買方名稱", "買受人", "公司名稱",
		"買方公司", "客戶名稱", "購買方", "進貨方",
		"買家", "顧客名稱", "戶名",
		// OCR misreadings
		"買芳", "買方各稻",
	},
	models.FieldSubtotal: {
		"未稅金額", "銷售額", "小計", "合計", "不含稅",
		"稅前金額", "應稅銷售額", "銷貨額", "淨額",
		"原價", "底價", "課稅銷售額", "不含稅金額",
		// OCR misreadings
		"未税金额", "消售额", "不含稅金煩", "小计",
	},
	models.FieldTaxAmount: {
		"稅額", "營業稅", "稅金", "加值稅",
		"稅款", "應納稅額", "銷項稅額", "VAT",
		"5%稅額", "營業稅額", "稅費",
		// OCR misreadings
		"税额", "稅顯", "營業說", "税金",
	},
	models.FieldTotal: {
		"總計", "總額", "含稅總額", "應收金額", "實付",
		"合計金額", "應付金額", "總價", "總金額",
		"含稅金額", "實際金額", "付款金額", "結算金額",
		// OCR misreadings
		"综计", "總汁", "合計金煩", "实付",
	},
	models.FieldItems: {
		"品名", "項目", "品項", "商品名稱", "說明",
		"貨品名稱", "服務項目", "內容", "品目",
		"商品", "貨物", "項次", "明細",
		// OCR misreadings
		"品各", "項曰", "商品名稻",
	},
}

// Synonyms returns the known synonyms for a canonical field.
func Synonyms(field models.CanonicalField) []string {
	return append([]string(nil), synonymDictionary[field]...)
}

// normalizedEntry is one precomputed dictionary entry.
type normalizedEntry struct {
	field    models.CanonicalField
	synonym  string
	normal   string
}

// buildNormalizedDictionary precomputes the normalized form of every synonym,
// in field declaration order then synonym order, so both exact and fuzzy
// passes iterate deterministically.
func buildNormalizedDictionary() []normalizedEntry {
	var entries []normalizedEntry
	for _, field := range models.AllFields() {
		for _, syn := range synonymDictionary[field] {
			entries = append(entries, normalizedEntry{
				field:   field,
				synonym: syn,
				normal:  normalize.Normalize(syn),
			})
		}
	}
	return entries
}
