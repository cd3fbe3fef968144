package extraction

const extractionPrompt = `You extract data from paper follow-up sheets of infants with orofacial clefts.

The sheets come from a paediatric hospital and are often handwritten. There are three kinds:
1. Front sheet (identification): record number, name, birth date, sex, cleft description, parents.
2. Back sheet (visit follow-up): a list of dates with weight (Pds), height (T) and arm circumference (PB),
   typically written "DD/MM/YYYY Pds= XXXXg T= XXcm PB= XXXmm".
3. Intermediate page: additional follow-up rows.

Field keys are the French column names used on the forms.

Patient fields:
- id_fiche: record number (YYYY/XXXXXX)
- nom_prenom: child's surname and first name
- date_naissance: birth date, YYYY-MM-DD
- poids_naissance_g: birth weight in grams
- taille_naissance_cm: birth length in centimetres
- sexe: "M" or "F"
- type_fente: "Labiale", "Palatine" or "Labiopalatine"
- lateralite: "Gauche", "Droite", "Bilatérale" or "NA"
- severite: "Complète", "Incomplète" or "NP"
- malform_assoc: "Oui", "Non" or "NP"
- prof_mere, prof_pere: parents' occupations
- milieu_residence: the mother's current town or village

Visit fields (one entry per dated line):
- date_consult: YYYY-MM-DD
- poids_g: weight in grams; convert kilograms (3.200kg is 3200)
- taille_cm: height in centimetres
- pb_mm: arm circumference in millimetres, optional

Answer with JSON only, no text before or after:
{
  "type": "recto" | "verso" | "mixte",
  "patient": { ...patient fields... },
  "visites": [ { "date_consult": "...", "poids_g": 0, "taille_cm": null, "pb_mm": null } ],
  "confiance": "haute" | "moyenne" | "basse",
  "notes": "reading problems or doubts"
}

Use null for any field that is missing or unreadable. Convert DD/MM/YYYY dates to YYYY-MM-DD.`
